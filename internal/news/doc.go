// Package news fetches headlines from a remote RSS or Atom feed and defines
// the storage contract the backends implement for them.
package news
