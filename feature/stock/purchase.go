package stock

import (
	"context"
	"fmt"
	"sort"

	"bom-manager/core/apperr"
	"bom-manager/core/identity"
	"bom-manager/core/report"
	"bom-manager/core/store"
	"bom-manager/core/table"
	"bom-manager/core/utils"
	"bom-manager/feature/importer"

	"github.com/shopspring/decimal"
)

// Demand is the quantity of one device still to be sourced.
type Demand struct {
	Hash         identity.Key
	DeviceID     string
	Manufacturer string
	Description  string
	Quantity     int
}

// Offer is one shop listing of a device.
type Offer struct {
	Hash     identity.Key
	Shop     string
	ShopID   string
	OrderQty int
	Price    decimal.Decimal
	Date     string
}

// Line is a device assigned to a shop.
type Line struct {
	Demand
	Shop   string
	ShopID string
	// Quantity is the amount to order: the net demand raised to the shop's
	// minimum order quantity.
	Quantity int
	Price    decimal.Decimal
	Cost     decimal.Decimal
	// Priced is false for devices no shop offers.
	Priced bool
}

// Group is one purchase list.
type Group struct {
	Shop  string
	File  string
	Lines []Line
	Total decimal.Decimal
}

// CollectDemand sums BOM quantities per device, optionally for one project,
// and scales them by factor. Rows must carry the joined device columns.
func CollectDemand(bom []table.Row, project string, factor float64) ([]Demand, error) {
	if factor <= 0 {
		return nil, fmt.Errorf("invalid multiplier %v", factor)
	}
	index := map[identity.Key]int{}
	var out []Demand
	var orphans []string
	for _, r := range bom {
		if project != "" && utils.ToString(r[colProject]) != project {
			continue
		}
		k, err := identity.From(r[colHash])
		if err != nil {
			return nil, fmt.Errorf("bom row %v: %w", r, err)
		}
		if table.IsNA(r[colDeviceID]) {
			orphans = append(orphans, k.String())
			continue
		}
		i, seen := index[k]
		if !seen {
			i = len(out)
			index[k] = i
			out = append(out, Demand{
				Hash:         k,
				DeviceID:     utils.ToString(r[colDeviceID]),
				Manufacturer: utils.ToString(r["device_manufacturer"]),
				Description:  utils.ToString(r["device_description"]),
			})
		}
		out[i].Quantity += utils.ToInt(r[colQuantity])
	}
	if len(orphans) > 0 {
		sort.Strings(orphans)
		return nil, &apperr.ValidationError{Table: TableBOM, Missing: []string{colDeviceID}, Devices: orphans}
	}
	for i := range out {
		out[i].Quantity = importer.Scale(out[i].Quantity, factor)
	}
	return out, nil
}

// NetAgainstStock subtracts on-hand stock from demand and drops devices
// already covered.
func NetAgainstStock(demand []Demand, onHand map[identity.Key]int) []Demand {
	out := make([]Demand, 0, len(demand))
	for _, d := range demand {
		d.Quantity -= onHand[d.Hash]
		if d.Quantity > 0 {
			out = append(out, d)
		}
	}
	return out
}

// AssignShops picks, per device, the offer with the lowest cost among each
// shop's most recent listing. Cost is the price times the net demand raised
// to the offer's minimum order quantity. Ties keep the first offer in the
// order given. Devices without offers go to unknownShop unpriced.
func AssignShops(net []Demand, offers []Offer, unknownShop string) []Line {
	latest := map[identity.Key][]Offer{}
	for _, o := range offers {
		list := latest[o.Hash]
		replaced := false
		for i := range list {
			if list[i].Shop == o.Shop {
				if o.Date > list[i].Date {
					list[i] = o
				}
				replaced = true
				break
			}
		}
		if !replaced {
			list = append(list, o)
		}
		latest[o.Hash] = list
	}

	lines := make([]Line, 0, len(net))
	for _, d := range net {
		line := Line{Demand: d, Shop: unknownShop, Quantity: d.Quantity}
		for _, o := range latest[d.Hash] {
			qty := max(o.OrderQty, d.Quantity)
			cost := o.Price.Mul(decimal.NewFromInt(int64(qty)))
			if line.Priced && !cost.LessThan(line.Cost) {
				continue
			}
			line.Shop, line.ShopID = o.Shop, o.ShopID
			line.Quantity, line.Price, line.Cost = qty, o.Price, cost
			line.Priced = true
		}
		lines = append(lines, line)
	}
	return lines
}

// Partition groups lines into purchase lists. Split lists are named
// <base>_<shop>.csv and ordered by shop; otherwise a single <base>.csv holds
// every line.
func Partition(lines []Line, base string, split bool) []Group {
	if len(lines) == 0 {
		return nil
	}
	if !split {
		g := Group{File: base + ".csv", Lines: lines, Total: total(lines)}
		return []Group{g}
	}
	byShop := map[string][]Line{}
	var shops []string
	for _, l := range lines {
		if _, ok := byShop[l.Shop]; !ok {
			shops = append(shops, l.Shop)
		}
		byShop[l.Shop] = append(byShop[l.Shop], l)
	}
	sort.Strings(shops)
	groups := make([]Group, 0, len(shops))
	for _, s := range shops {
		groups = append(groups, Group{
			Shop:  s,
			File:  fmt.Sprintf("%s_%s.csv", base, s),
			Lines: byShop[s],
			Total: total(byShop[s]),
		})
	}
	return groups
}

func total(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		if l.Priced {
			sum = sum.Add(l.Cost)
		}
	}
	return sum
}

// PurchaseRequest selects what to purchase.
type PurchaseRequest struct {
	// Project restricts demand to one project; empty means every project.
	Project    string
	Multiplier float64
	// Split writes one list per shop.
	Split     bool
	OutputDir string
	BaseName  string
	// Publish uploads the lists when the engine has a publisher.
	Publish bool
}

// PurchaseSummary reports a purchase run.
type PurchaseSummary struct {
	Groups   []GroupSummary
	Total    decimal.Decimal
	Unpriced int
}

// GroupSummary reports one written purchase list.
type GroupSummary struct {
	Shop   string
	Path   string
	Object string
	Lines  int
	Total  decimal.Decimal
}

// Purchase computes the purchase lists and writes them.
func (e *Engine) Purchase(ctx context.Context, req PurchaseRequest) (*PurchaseSummary, error) {
	if req.Multiplier == 0 {
		req.Multiplier = 1
	}
	if req.BaseName == "" {
		req.BaseName = "purchase"
	}
	if req.OutputDir == "" {
		req.OutputDir = "."
	}
	lines, err := e.PlanPurchase(ctx, req.Project, req.Multiplier)
	if err != nil {
		return nil, err
	}

	sum := &PurchaseSummary{Total: decimal.Zero}
	if len(lines) == 0 {
		report.Info(e.sink, "nothing to purchase", report.F("project", req.Project))
		return sum, nil
	}
	for _, g := range Partition(lines, req.BaseName, req.Split) {
		path, err := WriteList(req.OutputDir, g)
		if err != nil {
			return nil, err
		}
		gs := GroupSummary{Shop: g.Shop, Path: path, Lines: len(g.Lines), Total: g.Total}
		if req.Publish && e.publisher != nil {
			if gs.Object, err = e.publisher.Publish(ctx, path); err != nil {
				return nil, err
			}
		}
		sum.Groups = append(sum.Groups, gs)
		sum.Total = sum.Total.Add(g.Total)
	}
	for _, l := range lines {
		if !l.Priced {
			sum.Unpriced++
		}
	}
	shopTotals := map[string]decimal.Decimal{}
	shopLines := map[string]int{}
	for _, l := range lines {
		shopTotals[l.Shop] = shopTotals[l.Shop].Add(l.Cost)
		shopLines[l.Shop]++
	}
	for shop, t := range shopTotals {
		e.metrics.RecordPurchase(shop, t, shopLines[shop])
	}

	if sum.Unpriced > 0 {
		report.Warn(e.sink, "devices without shop offers",
			report.F("count", sum.Unpriced),
			report.F("shop", e.unknownShop))
	}
	report.Info(e.sink, "purchase lists written",
		report.F("lists", len(sum.Groups)),
		report.F("total", sum.Total.StringFixed(2)))
	return sum, nil
}

// PlanPurchase runs the purchase stages against the store without writing.
func (e *Engine) PlanPurchase(ctx context.Context, project string, factor float64) ([]Line, error) {
	bom, err := e.store.Get(ctx, TableBOM, store.Query{Follow: true})
	if err != nil {
		return nil, err
	}
	demand, err := CollectDemand(bom, project, factor)
	if err != nil {
		return nil, err
	}
	if project != "" && len(demand) == 0 && !hasProject(bom, project) {
		return nil, fmt.Errorf("%w %q", ErrUnknownProject, project)
	}

	stockRows, err := e.store.Get(ctx, TableStock, store.Query{})
	if err != nil {
		return nil, err
	}
	onHand, _, err := sumByDevice(stockRows)
	if err != nil {
		return nil, err
	}
	net := NetAgainstStock(demand, onHand)
	if len(net) == 0 {
		return nil, nil
	}

	values := make([]any, len(net))
	for i, d := range net {
		values[i] = d.Hash
	}
	// Offers arrive sorted by shop name, which settles cost ties.
	shopRows, err := e.store.Get(ctx, TableShop, store.Query{By: colHash, Values: values, OrderBy: []string{colHash, "shop", "date"}})
	if err != nil {
		return nil, err
	}
	offers, err := offersOf(shopRows)
	if err != nil {
		return nil, err
	}
	return AssignShops(net, offers, e.unknownShop), nil
}

func hasProject(bom []table.Row, project string) bool {
	for _, r := range bom {
		if utils.ToString(r[colProject]) == project {
			return true
		}
	}
	return false
}

func offersOf(rows []table.Row) ([]Offer, error) {
	offers := make([]Offer, 0, len(rows))
	for _, r := range rows {
		k, err := identity.From(r[colHash])
		if err != nil {
			return nil, fmt.Errorf("shop row %v: %w", r, err)
		}
		price, ok := utils.ToDecimal(r["price"])
		if !ok {
			continue
		}
		offers = append(offers, Offer{
			Hash:     k,
			Shop:     utils.ToString(r["shop"]),
			ShopID:   utils.ToString(r["shop_id"]),
			OrderQty: utils.ToInt(r["order_qty"]),
			Price:    price,
			Date:     utils.ToString(r["date"]),
		})
	}
	return offers, nil
}
