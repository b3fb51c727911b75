package mongo

import (
	"fmt"
	"strings"

	"github.com/atelier/profile-portal/internal/core/domain"
)

// Documents live in one collection per collection path shape: profiles/{uid}
// goes to "profiles", profiles/{uid}/devices/{id} to "profiles.devices". The
// full path is the document _id.

func documentCollection(path string) (string, error) {
	segments, err := domain.SplitPath(path)
	if err != nil {
		return "", err
	}
	if len(segments)%2 != 0 {
		return "", fmt.Errorf("%w: %s is not a document", domain.ErrInvalidPath, path)
	}
	return collectionName(segments), nil
}

func childCollection(collectionPath string) (string, error) {
	segments, err := domain.SplitPath(collectionPath)
	if err != nil {
		return "", err
	}
	if len(segments)%2 != 1 {
		return "", fmt.Errorf("%w: %s is not a collection", domain.ErrInvalidPath, collectionPath)
	}
	return collectionName(segments), nil
}

func collectionName(segments []string) string {
	names := make([]string, 0, (len(segments)+1)/2)
	for i := 0; i < len(segments); i += 2 {
		names = append(names, segments[i])
	}
	return strings.Join(names, ".")
}
