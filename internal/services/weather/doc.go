// Package weather asks an Open-Meteo compatible forecast endpoint whether it
// is currently raining at a fixed location.
package weather
