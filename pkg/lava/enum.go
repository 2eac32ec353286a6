package lava

import (
	"encoding/json"
	"fmt"
	"slices"
)

// unmarshalEnum decodes a JSON string into a closed string enumeration,
// rejecting values outside the declared domain.
func unmarshalEnum[T ~string](data []byte, all []T, kind string) (T, error) {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return "", fmt.Errorf("decode %s: %w", kind, err)
	}
	if !slices.Contains(all, T(s)) {
		return "", fmt.Errorf("unknown %s %q", kind, s)
	}
	return T(s), nil
}
