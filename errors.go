package tably

import "github.com/pkg/errors"

var ErrUnknownFieldType = errors.New("unknown field type tag")
var ErrFieldNotFound = errors.New("field not found")
var ErrRecordNotFound = errors.New("record not found")
var ErrDuplicateFieldValue = errors.New("record holds more than one value for the same field")
var ErrInvalidStructuredValue = errors.New("structured value is not valid json")
var ErrViewNotRenderable = errors.New("view is not renderable")
var ErrColumnNotFound = errors.New("kanban column not found")
var ErrRequestFailed = errors.New("request failed")
var ErrChannelClosed = errors.New("realtime channel is closed")
var ErrNoOpenTable = errors.New("no table is currently open")
