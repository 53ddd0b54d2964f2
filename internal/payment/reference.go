package payment

import (
	"fmt"
	"strings"
)

// ExternalReference formats "<userId>:<planId>".
func ExternalReference(userID, planID string) string {
	return userID + ":" + planID
}

// ParseExternalReference splits a reference built by ExternalReference.
func ParseExternalReference(ref string) (userID, planID string, err error) {
	userID, planID, ok := strings.Cut(ref, ":")
	if !ok || userID == "" || planID == "" {
		return "", "", fmt.Errorf("malformed external reference %q", ref)
	}
	return userID, planID, nil
}
