package hpack

import "errors"

var (
	ErrIntegerOverflow        = errors.New("hpack: integer overflow")
	ErrMalformedHuffman       = errors.New("hpack: malformed huffman sequence")
	ErrInvalidIndex           = errors.New("hpack: invalid index")
	ErrTableSizeExceeded      = errors.New("hpack: dynamic table size update exceeds maximum")
	ErrMisplacedSizeUpdate    = errors.New("hpack: dynamic table size update after header field")
	ErrTruncatedBlock         = errors.New("hpack: header block truncated")
	ErrStringTooLong          = errors.New("hpack: string too long")
	ErrOutputCapacityExceeded = errors.New("hpack: output capacity exceeded")

	// ErrPoisoned is returned by every call on a context that already failed.
	ErrPoisoned = errors.New("hpack: context unusable after earlier error")
)
