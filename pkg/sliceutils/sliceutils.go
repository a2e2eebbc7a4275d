package sliceutils

import "strings"

func StringSliceContains(slice []string, value string, caseInsensitive bool) bool {
	for _, v := range slice {
		if caseInsensitive && strings.EqualFold(v, value) {
			return true
		} else if v == value {
			return true
		}
	}

	return false
}
