// Package chunker splits large line-oriented input files into fixed-size chunk
// files so that each chunk can be processed independently.
//
// Chunks are named {base}_chunk_{n}.txt where base is the source file name
// without its extension and n counts from zero.
package chunker
