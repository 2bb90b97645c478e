package value_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"dms_sales/internal/domain/value"
)

func TestParseDealID(t *testing.T) {
	rq := require.New(t)

	id := value.NewDealID()
	rq.False(id.IsZero())

	parsed, err := value.ParseDealID(id.String())
	rq.NoError(err)
	rq.Equal(id, parsed)

	_, err = value.ParseDealID("not-a-uuid")
	rq.ErrorContains(err, "uuid.Parse")

	rq.True(value.DealID{}.IsZero())
}

func TestParseAddOnID(t *testing.T) {
	rq := require.New(t)

	id := value.NewAddOnID()

	parsed, err := value.ParseAddOnID(id.String())
	rq.NoError(err)
	rq.Equal(id, parsed)

	_, err = value.ParseAddOnID("")
	rq.Error(err)
}

func TestActor(t *testing.T) {
	rq := require.New(t)

	rq.True(value.Actor("").IsZero())
	rq.True(value.Actor("  ").IsZero())
	rq.False(value.SystemActor.IsZero())
	rq.Equal("system", value.SystemActor.String())
}
