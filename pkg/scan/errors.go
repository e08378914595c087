package scan

import "errors"

// ErrUndecodableImage is returned when the source image cannot be decoded at all.
// This is the only condition that aborts a pipeline run.
var ErrUndecodableImage = errors.New("undecodable image")
