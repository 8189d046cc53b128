// Package segment converts transcript text into short, ordered segments sized
// for the sign rendering service.
//
// Split is pure and deterministic. Sentences are grouped greedily up to the
// length limit; a sentence that alone exceeds the limit is broken on commas,
// and a comma clause that still exceeds it is kept whole.
package segment
