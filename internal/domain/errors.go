package domain

import "errors"

var (
	ErrConfiguration = errors.New("invalid configuration")
	ErrDecode        = errors.New("decode image")
	ErrEncode        = errors.New("encode output")
	ErrEmptyBatch    = errors.New("empty image batch")
)
