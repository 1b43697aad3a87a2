//go:build !wasip1 && !js

package resources

import (
	"os"

	"github.com/edsrzf/mmap-go"
)

// readMmap maps file read-only. The returned func unmaps it.
func readMmap(file *os.File) ([]byte, func() error, error) {
	fileMmap, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		return nil, nil, err
	}
	return []byte(fileMmap), fileMmap.Unmap, nil
}
