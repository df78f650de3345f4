// Package textutil turns media server identifiers into tokens that are safe
// to embed in clip file names.
package textutil
