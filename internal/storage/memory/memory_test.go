package memory

import (
	"testing"

	"mamaboss/internal/storage"
	"mamaboss/internal/storage/storagetest"
)

func TestStoreContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store { return New() })
}
