// Package mmfile provides platform-specific helpers for mapping backing files
// and guest arena memory.
package mmfile
