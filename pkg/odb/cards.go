package odb

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Card is one physical subsystem card of a mission, as listed in the
// mission's cards.csv. Base names the card's base config YAML; cards with an
// empty base (e.g. solar deployers driven by another card) have no OD.
type Card struct {
	// NiceName is the human readable card name.
	NiceName string
	// NodeID is the card's CANopen node id.
	NodeID uint8
	// Processor is the card's processor class: "octavo" for Linux cards,
	// "stm32" for firmware cards, or "none".
	Processor string
	// OPDAddress is the card's address on the power domain controller bus.
	OPDAddress uint8
	// OPDAlwaysOn keeps the card powered at all times.
	OPDAlwaysOn bool
	// Base is the name of the base config under configs/base, without the
	// .yaml suffix. Empty for cards without a config.
	Base string
	// Child is an optional child card name.
	Child string
}

var cardColumns = []string{
	"name", "nice_name", "node_id", "processor", "opd_address", "opd_always_on", "base", "child",
}

// ParseCards reads a cards.csv roster.
func ParseCards(r io.Reader) (map[string]Card, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading cards csv header: %w", err)
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, want := range cardColumns {
		if _, ok := cols[want]; !ok {
			return nil, fmt.Errorf("cards csv missing column %q", want)
		}
	}
	if len(cols) != len(cardColumns) {
		return nil, fmt.Errorf("cards csv has %d columns, expected %d", len(cols), len(cardColumns))
	}

	cards := map[string]Card{}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading cards csv: %w", err)
		}

		name := row[cols["name"]]
		nodeID, err := parseHexByte(row[cols["node_id"]])
		if err != nil {
			return nil, fmt.Errorf("card %s: node_id: %w", name, err)
		}
		opdAddr, err := parseHexByte(row[cols["opd_address"]])
		if err != nil {
			return nil, fmt.Errorf("card %s: opd_address: %w", name, err)
		}

		cards[name] = Card{
			NiceName:    row[cols["nice_name"]],
			NodeID:      nodeID,
			Processor:   row[cols["processor"]],
			OPDAddress:  opdAddr,
			OPDAlwaysOn: strings.EqualFold(row[cols["opd_always_on"]], "true"),
			Base:        row[cols["base"]],
			Child:       row[cols["child"]],
		}
	}
	return cards, nil
}

func parseHexByte(s string) (uint8, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(s), "0x"), 16, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid hex byte %q", s)
	}
	return uint8(v), nil
}

// cardNames returns card names sorted by node id, so building is
// deterministic.
func cardNames(cards map[string]Card) []string {
	names := make([]string, 0, len(cards))
	for name := range cards {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if cards[names[i]].NodeID != cards[names[j]].NodeID {
			return cards[names[i]].NodeID < cards[names[j]].NodeID
		}
		return names[i] < names[j]
	})
	return names
}
