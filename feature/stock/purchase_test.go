package stock

import (
	"testing"

	"bom-manager/core/apperr"
	"bom-manager/core/identity"
	"bom-manager/core/table"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	hashAA = identity.Of("aa", "TI")
	hashBB = identity.Of("bb", "TI")
)

func offer(h identity.Key, shop string, orderQty int, price int64, date string) Offer {
	return Offer{Hash: h, Shop: shop, ShopID: shop + "-id", OrderQty: orderQty, Price: decimal.NewFromInt(price), Date: date}
}

func TestAssignShops_LowestCostWins(t *testing.T) {
	net := []Demand{{Hash: hashAA, DeviceID: "aa", Quantity: 1}}
	offers := []Offer{
		offer(hashAA, "pytest1", 5, 10, "2026-01-01"),
		offer(hashAA, "pytest2", 10, 20, "2026-01-01"),
	}

	lines := AssignShops(net, offers, "unknown")
	require.Len(t, lines, 1)
	l := lines[0]
	assert.Equal(t, "pytest1", l.Shop)
	assert.Equal(t, 5, l.Quantity, "raised to the minimum order quantity")
	assert.True(t, l.Cost.Equal(decimal.NewFromInt(50)))
	assert.True(t, l.Priced)
}

func TestAssignShops_LatestOfferPerShop(t *testing.T) {
	net := []Demand{{Hash: hashAA, Quantity: 2}}
	offers := []Offer{
		offer(hashAA, "lcsc", 1, 1, "2026-01-01"),
		offer(hashAA, "lcsc", 1, 3, "2026-02-01"),
		offer(hashAA, "mouser", 1, 2, "2025-12-01"),
	}

	lines := AssignShops(net, offers, "unknown")
	require.Len(t, lines, 1)
	assert.Equal(t, "mouser", lines[0].Shop, "the stale cheap lcsc listing is superseded")
	assert.True(t, lines[0].Cost.Equal(decimal.NewFromInt(4)))
}

func TestAssignShops_TieKeepsFirstSeen(t *testing.T) {
	net := []Demand{{Hash: hashAA, Quantity: 3}}
	offers := []Offer{
		offer(hashAA, "b-shop", 1, 2, "2026-01-01"),
		offer(hashAA, "a-shop", 1, 2, "2026-01-01"),
	}

	lines := AssignShops(net, offers, "unknown")
	assert.Equal(t, "b-shop", lines[0].Shop)
}

func TestAssignShops_NoOffer(t *testing.T) {
	net := []Demand{{Hash: hashBB, DeviceID: "bb", Quantity: 4}}

	lines := AssignShops(net, []Offer{offer(hashAA, "lcsc", 1, 1, "2026-01-01")}, "unknown")
	require.Len(t, lines, 1)
	assert.Equal(t, "unknown", lines[0].Shop)
	assert.Equal(t, 4, lines[0].Quantity)
	assert.False(t, lines[0].Priced)
	assert.True(t, lines[0].Cost.IsZero())
}

func TestNetAgainstStock(t *testing.T) {
	demand := []Demand{
		{Hash: hashAA, Quantity: 10},
		{Hash: hashBB, Quantity: 2},
	}
	net := NetAgainstStock(demand, map[identity.Key]int{hashAA: 4, hashBB: 2})
	require.Len(t, net, 1)
	assert.Equal(t, hashAA, net[0].Hash)
	assert.Equal(t, 6, net[0].Quantity)
}

func TestCollectDemand(t *testing.T) {
	bom := []table.Row{
		{"device_hash": hashAA.String(), "device_id": "aa", "project": "amp", "quantity": int64(3)},
		{"device_hash": hashAA.String(), "device_id": "aa", "project": "psu", "quantity": int64(2)},
		{"device_hash": hashBB.String(), "device_id": "bb", "project": "psu", "quantity": int64(1)},
	}

	t.Run("all projects", func(t *testing.T) {
		d, err := CollectDemand(bom, "", 1)
		require.NoError(t, err)
		require.Len(t, d, 2)
		assert.Equal(t, 5, d[0].Quantity)
		assert.Equal(t, "aa", d[0].DeviceID)
	})

	t.Run("one project scaled", func(t *testing.T) {
		d, err := CollectDemand(bom, "psu", 1.5)
		require.NoError(t, err)
		require.Len(t, d, 2)
		assert.Equal(t, 3, d[0].Quantity)
		assert.Equal(t, 2, d[1].Quantity, "scaled quantities round up")
	})

	t.Run("orphan lines", func(t *testing.T) {
		orphan := append(bom, table.Row{"device_hash": identity.Of("zz", "X").String(), "project": "amp", "quantity": int64(1)})
		_, err := CollectDemand(orphan, "", 1)
		var ve *apperr.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, []string{"device_id"}, ve.Missing)
		assert.Equal(t, []string{identity.Of("zz", "X").String()}, ve.Devices)
	})

	t.Run("bad multiplier", func(t *testing.T) {
		_, err := CollectDemand(bom, "", 0)
		assert.Error(t, err)
	})
}

func TestPartition(t *testing.T) {
	lines := []Line{
		{Shop: "mouser", Priced: true, Cost: decimal.NewFromInt(7)},
		{Shop: "lcsc", Priced: true, Cost: decimal.NewFromInt(2)},
		{Shop: "lcsc", Priced: true, Cost: decimal.NewFromInt(3)},
		{Shop: "unknown"},
	}

	split := Partition(lines, "order", true)
	require.Len(t, split, 3)
	assert.Equal(t, "order_lcsc.csv", split[0].File)
	assert.Len(t, split[0].Lines, 2)
	assert.True(t, split[0].Total.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, "order_mouser.csv", split[1].File)
	assert.Equal(t, "order_unknown.csv", split[2].File)
	assert.True(t, split[2].Total.IsZero())

	single := Partition(lines, "order", false)
	require.Len(t, single, 1)
	assert.Equal(t, "order.csv", single[0].File)
	assert.True(t, single[0].Total.Equal(decimal.NewFromInt(12)))

	assert.Empty(t, Partition(nil, "order", true))
}
