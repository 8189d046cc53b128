// Package language canonicalizes BCP 47 language codes and picks caption
// tracks from an ordered preference list.
package language
