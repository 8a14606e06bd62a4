package platform

import (
	"path/filepath"
	"strings"
)

// MatchesImageName reports whether a process image name refers to the
// executable name. Comparison ignores case, directories and a trailing ".exe",
// so "EXCEL", "excel.exe" and `C:\Office\EXCEL.EXE` all match each other.
func MatchesImageName(image, name string) bool {
	return baseImageName(image) != "" && baseImageName(image) == baseImageName(name)
}

func baseImageName(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexAny(s, `\/`); i >= 0 {
		s = s[i+1:]
	}
	s = strings.ToLower(s)
	if strings.EqualFold(filepath.Ext(s), ".exe") {
		s = strings.TrimSuffix(s, filepath.Ext(s))
	}
	return s
}
