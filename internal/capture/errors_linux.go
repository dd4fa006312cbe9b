//go:build linux

package capture

import (
	"errors"

	slimcapture "github.com/fako1024/slimcap/capture"
)

// translateSourceErr maps slimcap's own sentinel errors (capture.go's
// process() loop distinguishes them via errors.Is) onto this package's
// equivalents, so callers never need to import slimcap themselves.
func translateSourceErr(err error) error {
	if errors.Is(err, slimcapture.ErrCaptureStopped) {
		return ErrCaptureStopped
	}
	if errors.Is(err, slimcapture.ErrCaptureUnblock) {
		return ErrCaptureUnblock
	}
	return err
}
