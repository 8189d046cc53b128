// Package textutil sanitizes user-supplied names for use as file names,
// directory tokens and storage object keys.
package textutil
