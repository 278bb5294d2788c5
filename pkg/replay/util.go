package replay

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var barcodeRe = regexp.MustCompile(`^[IiLl]+$`)

// Time2Secs converts an in-game "MM:SS" clock string to seconds.
func Time2Secs(duration string) (int, error) {
	minutes, seconds, ok := strings.Cut(duration, ":")
	if !ok {
		return 0, fmt.Errorf("invalid duration %q", duration)
	}
	m, err := strconv.Atoi(minutes)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", duration, err)
	}
	s, err := strconv.Atoi(seconds)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", duration, err)
	}
	return m*60 + s, nil
}

// Secs2Time converts seconds to an in-game "MM:SS" clock string.
func Secs2Time(secs int) string {
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// IsBarcode reports whether a player name is a "barcode", a name made up
// entirely of visually indistinguishable characters used to hide identity.
func IsBarcode(name string) bool {
	return barcodeRe.MatchString(name)
}

// SplitToon splits a region-qualified toon handle like "2-S2-2-9562" into
// region, realm and profile ID.
func SplitToon(handle string) (region, realm, profile int, err error) {
	parts := strings.Split(handle, "-")
	if len(parts) != 4 {
		return 0, 0, 0, fmt.Errorf("invalid toon handle %q", handle)
	}
	region, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid toon handle %q: %w", handle, err)
	}
	realm, err = strconv.Atoi(parts[2])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid toon handle %q: %w", handle, err)
	}
	profile, err = strconv.Atoi(parts[3])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid toon handle %q: %w", handle, err)
	}
	return region, realm, profile, nil
}
