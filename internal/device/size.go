package device

import "fmt"

const (
	kib uint64 = 1 << 10
	mib        = kib << 10
	gib        = mib << 10
	tib        = gib << 10
)

// FormatSize formats bytes to a human-readable 1024-based size.
func FormatSize(bytes uint64) string {
	switch {
	case bytes >= tib:
		return fmt.Sprintf("%.1f TB", float64(bytes)/float64(tib))
	case bytes >= gib:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(gib))
	case bytes >= mib:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mib))
	case bytes >= kib:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kib))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
