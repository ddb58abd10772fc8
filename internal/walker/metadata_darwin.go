//go:build darwin

package walker

import (
	"os"
	"syscall"
)

// timesFromInfo extracts ctime/mtime as unix seconds from a Lstat
// result. Darwin spells the ctime field Ctimespec.
func timesFromInfo(fi os.FileInfo) (ctime, mtime uint32) {
	mtime = uint32(fi.ModTime().Unix())
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		ctime = uint32(st.Ctimespec.Sec)
	} else {
		ctime = mtime
	}
	return ctime, mtime
}
