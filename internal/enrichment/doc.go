// Package enrichment fills in the name and description of cargo using a
// vision-capable text generator.
//
// Each Run reclaims expired claims, selects cargo with no text and no claim,
// and processes them with a bounded number of workers. A worker claims its
// cargo with a single compare-and-set, reads the texture, waits on the shared
// rate limiter, calls the generator, parses "<name>%%%<description>" and
// writes both fields while clearing the claim. Any failure releases the claim
// without writing, leaving the cargo for a later tick. A lost claim is not an
// error.
package enrichment
