package domain

import "errors"

var (
	ErrNotFound                = errors.New("not found")
	ErrCategoryCycle           = errors.New("category cannot be moved under itself or its descendant")
	ErrUnsupportedPropertyType = errors.New("unsupported property type")
	ErrInvalidPropertyValue    = errors.New("invalid property value")
	ErrPropertyNotRelevant     = errors.New("property is not relevant for item category")
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrInvalidTransition       = errors.New("invalid rent status transition")
)
