//go:build !linux && !darwin

package walker

import "os"

// timesFromInfo falls back to mtime for both fields on platforms
// without a syscall.Stat_t ctime field (e.g. windows).
func timesFromInfo(fi os.FileInfo) (ctime, mtime uint32) {
	mtime = uint32(fi.ModTime().Unix())
	return mtime, mtime
}
