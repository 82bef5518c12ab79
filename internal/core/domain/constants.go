package domain

import "errors"

var (
	ErrInvalidName  = errors.New("invalid image name")
	ErrNotFound     = errors.New("not found")
	ErrTransfer     = errors.New("object store transfer failed")
	ErrEmptyOutput  = errors.New("empty output TIFF")
	ErrEncode       = errors.New("encoding failed")
	ErrNotWritable  = errors.New("output image not writable")
	ErrUnauthorized = errors.New("unauthorized")
)

const (
	ActionConvert = "convert"
	ActionDelete  = "delete"
)
