// Package platform wraps file system calls whose behavior differs between
// operating systems.
package platform

import (
	"io/fs"
	"os"
)

// ResolveEntryInfo gets FileInfo from a DirEntry, filtering out symlinks
// and non-regular files. Returns (info, ok, error) where ok=false means
// the entry should be skipped.
func ResolveEntryInfo(root *os.Root, fsPath string, d fs.DirEntry) (fs.FileInfo, bool, error) {
	dtype := d.Type()
	if dtype&fs.ModeSymlink != 0 {
		return nil, false, nil
	}

	if dtype == 0 {
		linfo, err := root.Lstat(fsPath)
		if err != nil {
			return nil, false, err
		}
		if !linfo.Mode().IsRegular() {
			return nil, false, nil
		}
		return linfo, true, nil
	}

	if !dtype.IsRegular() {
		return nil, false, nil
	}
	info, err := d.Info()
	if err != nil {
		return nil, false, err
	}
	if !info.Mode().IsRegular() {
		return nil, false, nil
	}
	return info, true, nil
}
