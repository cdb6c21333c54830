package gallery

import (
	"testing"

	"oprdesk/testutil"
)

func TestNoDriverOrTransportImports(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.AnyOf(testutil.InfraImport, testutil.TransportImport), "gallery goes through the storage facades and stays below the transports")
}
