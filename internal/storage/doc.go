// Package storage forwards uploaded videos to a Supabase Storage bucket and
// builds the public URLs returned to API callers.
package storage
