package heatmap

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/banshee-data/court.report/internal/timeutil"
)

// ZoneTime is the dwell time credited to a zone. It encodes as a
// [zone, milliseconds] pair.
type ZoneTime struct {
	Zone Zone
	Ms   int64
}

// MarshalJSON encodes z as a two-element array.
func (z ZoneTime) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{z.Zone, z.Ms})
}

// UnmarshalJSON decodes a [zone, milliseconds] pair.
func (z *ZoneTime) UnmarshalJSON(data []byte) error {
	var raw [2]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("zone time entry: %w", err)
	}
	if err := json.Unmarshal(raw[0], &z.Zone); err != nil {
		return fmt.Errorf("zone time name: %w", err)
	}
	if err := json.Unmarshal(raw[1], &z.Ms); err != nil {
		return fmt.Errorf("zone time value: %w", err)
	}
	return nil
}

// Statistics summarises movement since the last ClearHistory.
type Statistics struct {
	TotalDistance float64 `json:"totalDistance"` // metres
	AverageSpeed  float64 `json:"averageSpeed"`  // m/s, exponentially smoothed
	// TimeInZones lists every zone with recorded dwell time in court order,
	// out-of-bounds last.
	TimeInZones     []ZoneTime `json:"timeInZones"`
	MostVisitedZone Zone       `json:"mostVisitedZone,omitempty"`
	SampleCount     int        `json:"sampleCount"`
	CurrentZone     Zone       `json:"currentZone,omitempty"`
}

// Statistics returns the current movement statistics.
func (a *Aggregator) Statistics() Statistics {
	st := Statistics{
		TotalDistance: a.totalDistance,
		AverageSpeed:  a.averageSpeed,
		TimeInZones:   []ZoneTime{},
		SampleCount:   len(a.history),
	}
	var best int64
	zones := append(CourtZones[:], ZoneOutOfBounds)
	for _, z := range zones {
		ms, ok := a.zoneTime[z]
		if !ok {
			continue
		}
		st.TimeInZones = append(st.TimeInZones, ZoneTime{Zone: z, Ms: ms})
		if ms > best {
			best = ms
			st.MostVisitedZone = z
		}
	}
	if a.current != nil {
		st.CurrentZone = a.current.Zone
	}
	return st
}

// Export is the serialised aggregator state.
type Export struct {
	SessionID       string           `json:"sessionId"`
	Settings        Settings         `json:"settings"`
	PositionHistory []PositionSample `json:"positionHistory"`
	Statistics      Statistics       `json:"statistics"`
	HeatmapData     *Heatmap         `json:"heatmapData"`
	ExportedAt      int64            `json:"exportedAt"`
}

// Snapshot returns the exportable state. HeatmapData is the last generated
// heatmap, or nil if none was generated.
func (a *Aggregator) Snapshot() Export {
	exp := Export{
		SessionID:       a.id,
		Settings:        a.settings,
		PositionHistory: a.History(),
		Statistics:      a.Statistics(),
		ExportedAt:      timeutil.UnixMillis(a.clock),
	}
	if exp.PositionHistory == nil {
		exp.PositionHistory = []PositionSample{}
	}
	if a.heatmap != nil {
		h := *a.heatmap
		exp.HeatmapData = &h
	}
	return exp
}

// Export encodes Snapshot as indented JSON.
func (a *Aggregator) Export() ([]byte, error) {
	data, err := json.MarshalIndent(a.Snapshot(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal heatmap export: %w", err)
	}
	return data, nil
}

// ParseExport decodes an exported document.
func ParseExport(data []byte) (Export, error) {
	var exp Export
	if err := json.Unmarshal(data, &exp); err != nil {
		return Export{}, fmt.Errorf("parse heatmap export: %w", err)
	}
	return exp, nil
}

// BlobStore is the key-value persistence exports are written to.
type BlobStore interface {
	Put(ctx context.Context, key string, value []byte) error
}

// Save writes the export to store under key.
func (a *Aggregator) Save(ctx context.Context, store BlobStore, key string) error {
	data, err := a.Export()
	if err != nil {
		return err
	}
	if err := store.Put(ctx, key, data); err != nil {
		return fmt.Errorf("save heatmap export %q: %w", key, err)
	}
	Diagf("aggregator %s: saved %d bytes to %q", a.id, len(data), key)
	return nil
}
