/*
Package padding implements the two length-hiding padding schemes applied to
a secret version's serialized bytes before encryption: NonZeroPadding for
payloads known to contain no NUL byte, and RandomFrontBack for arbitrary
payloads. Both align the padded buffer to a caller-chosen block size so
ciphertext length does not betray plaintext length within a block.
*/
package padding

import "errors"

// ErrPadding is returned when a padded buffer is malformed: a length
// prefix claims more bytes than are available, or no separator is found.
var ErrPadding = errors.New("padding: malformed padded data")
