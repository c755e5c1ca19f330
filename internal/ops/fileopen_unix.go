//go:build !windows

package ops

import (
	stderrors "errors"
	"os"
	"syscall"

	"github.com/jimmcbubbles/usertags/internal/errors"
)

// openFileNoFollow opens path for writing, refusing a symlink as the final
// component. Directory components are covered by ValidatePath.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	fd, err := syscall.Open(path, flag|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, uint32(perm))
	if err != nil {
		if stderrors.Is(err, syscall.ELOOP) {
			return nil, errors.NewInvalidRequest("cannot write to symlink")
		}
		return nil, err
	}
	return os.NewFile(uintptr(fd), path), nil
}

// openFileNoFollowRead opens path read-only, refusing a symlink as the final
// component.
func openFileNoFollowRead(path string) (*os.File, error) {
	fd, err := syscall.Open(path, syscall.O_RDONLY|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, 0)
	if err != nil {
		switch {
		case stderrors.Is(err, syscall.ELOOP):
			return nil, errors.NewInvalidRequest("cannot read from symlink")
		case stderrors.Is(err, syscall.ENOENT):
			return nil, errors.NewFileNotFound(path)
		}
		return nil, err
	}
	return os.NewFile(uintptr(fd), path), nil
}
