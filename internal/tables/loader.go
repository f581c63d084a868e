package tables

import (
	"embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/romanowskaa/expressway-capacity-estimation/internal/domain"
)

//go:embed data/*.csv
var embedded embed.FS

var (
	defaultOnce   sync.Once
	defaultTables *Tables
	defaultErr    error
)

// Default returns the tables embedded in the binary, parsed on first use
func Default() (*Tables, error) {
	defaultOnce.Do(func() {
		sub, err := fs.Sub(embedded, "data")
		if err != nil {
			defaultErr = fmt.Errorf("tables: failed to open embedded data: %w", err)
			return
		}
		defaultTables, defaultErr = Load(sub)
	})
	return defaultTables, defaultErr
}

// Load parses u50.csv, ew_rate.csv, capacity.csv and psr_bound.csv from fsys
func Load(fsys fs.FS) (*Tables, error) {
	t := &Tables{
		peaking:  make(map[domain.Profile][]ADTBucket),
		light:    make(map[GradientBucket]float64),
		heavy:    make(map[heavyKey]float64),
		capacity: make(map[capacityKey]CapacityRow),
	}

	loaders := []struct {
		table string
		parse func(records []record) error
	}{
		{PeakingTable, t.parsePeaking},
		{EquivalencyTable, t.parseEquivalency},
		{CapacityTable, t.parseCapacity},
		{LOSTable, t.parseLOS},
	}

	for _, l := range loaders {
		records, err := readCSV(fsys, l.table+".csv")
		if err != nil {
			return nil, fmt.Errorf("tables: failed to read %s: %w", l.table, err)
		}
		if err := l.parse(records); err != nil {
			return nil, fmt.Errorf("tables: failed to parse %s: %w", l.table, err)
		}
	}

	log.Printf("Reference tables loaded: %d profiles, %d hv factors, %d capacity rows, %d LOS grades",
		len(t.peaking), len(t.heavy), len(t.capacity), len(t.los))
	return t, nil
}

// record is one CSV row with access by column name
type record struct {
	line   int
	fields []string
	idx    map[string]int
}

func (r record) str(col string) string {
	if i, ok := r.idx[col]; ok && i < len(r.fields) {
		return strings.TrimSpace(r.fields[i])
	}
	return ""
}

func (r record) float(col string) (float64, error) {
	v, err := strconv.ParseFloat(r.str(col), 64)
	if err != nil {
		return 0, fmt.Errorf("line %d: column %s: %w", r.line, col, err)
	}
	return v, nil
}

func (r record) int(col string) (int, error) {
	v, err := strconv.Atoi(r.str(col))
	if err != nil {
		return 0, fmt.Errorf("line %d: column %s: %w", r.line, col, err)
	}
	return v, nil
}

func readCSV(fsys fs.FS, name string) ([]record, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("missing header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.TrimSpace(col)] = i
	}

	var records []record
	for line := 2; ; line++ {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record{line: line, fields: fields, idx: idx})
	}
	return records, nil
}

func (t *Tables) parsePeaking(records []record) error {
	for _, r := range records {
		profile, ok := domain.ParseProfile(r.str("profile"))
		if !ok {
			return fmt.Errorf("line %d: unknown profile %q", r.line, r.str("profile"))
		}
		lo, err := r.int("adt_min")
		if err != nil {
			return err
		}
		hi, err := r.int("adt_max")
		if err != nil {
			return err
		}
		factor, err := r.float("u50")
		if err != nil {
			return err
		}
		if lo >= hi || factor <= 0 {
			return fmt.Errorf("line %d: invalid bucket [%d, %d) u50=%v", r.line, lo, hi, factor)
		}
		t.peaking[profile] = append(t.peaking[profile], ADTBucket{Min: lo, Max: hi, Factor: factor})
	}

	for profile, buckets := range t.peaking {
		sort.Slice(buckets, func(i, j int) bool { return buckets[i].Min < buckets[j].Min })
		for i := 1; i < len(buckets); i++ {
			if buckets[i].Min < buckets[i-1].Max {
				return fmt.Errorf("profile %s: overlapping ADT ranges [%d, %d) and [%d, %d)",
					profile, buckets[i-1].Min, buckets[i-1].Max, buckets[i].Min, buckets[i].Max)
			}
		}
	}
	return nil
}

func (t *Tables) parseEquivalency(records []record) error {
	for _, r := range records {
		gradient, err := r.float("max_gradient")
		if err != nil {
			return err
		}
		factor, err := r.float("conv_factor")
		if err != nil {
			return err
		}
		g := BucketGradient(gradient)

		switch r.str("veh_type") {
		case "lv":
			if _, dup := t.light[g]; dup {
				return fmt.Errorf("line %d: duplicate lv factor for gradient %d%%", r.line, g)
			}
			t.light[g] = factor
		case "hv":
			class, ok := domain.ParseRoadClass(r.str("road_class"))
			if !ok {
				return fmt.Errorf("line %d: unknown road class %q", r.line, r.str("road_class"))
			}
			lanes, err := r.int("lanes")
			if err != nil {
				return err
			}
			rate, err := r.float("max_util_rate")
			if err != nil {
				return err
			}
			utilCap, err := parseUtilizationCap(rate)
			if err != nil {
				return fmt.Errorf("line %d: %w", r.line, err)
			}
			key := heavyKey{class: class, lanes: lanes, utilCap: utilCap, gradient: g}
			if _, dup := t.heavy[key]; dup {
				return fmt.Errorf("line %d: duplicate hv factor %+v", r.line, key)
			}
			t.heavy[key] = factor
		default:
			return fmt.Errorf("line %d: unknown veh_type %q", r.line, r.str("veh_type"))
		}
	}
	return nil
}

func (t *Tables) parseCapacity(records []record) error {
	for _, r := range records {
		class, ok := domain.ParseRoadClass(r.str("road_class"))
		if !ok {
			return fmt.Errorf("line %d: unknown road class %q", r.line, r.str("road_class"))
		}
		speed, err := r.int("ffs")
		if err != nil {
			return err
		}
		capacity, err := r.int("base_capacity")
		if err != nil {
			return err
		}
		optSpeed, err := r.float("opt_speed")
		if err != nil {
			return err
		}
		jam, err := r.float("jam_density")
		if err != nil {
			return err
		}

		key := capacityKey{class: class, speed: speed}
		if _, dup := t.capacity[key]; dup {
			return fmt.Errorf("line %d: duplicate row for %s at %d km/h", r.line, class, speed)
		}
		t.capacity[key] = CapacityRow{BaseCapacity: capacity, OptimalSpeed: optSpeed, JamDensity: jam}
	}
	return nil
}

func (t *Tables) parseLOS(records []record) error {
	grades := domain.BoundedGrades()
	seen := make(map[domain.Grade]bool)
	for _, r := range records {
		grade := domain.Grade(r.str("los"))
		if !slices.Contains(grades, grade) {
			return fmt.Errorf("line %d: unknown grade %q", r.line, r.str("los"))
		}
		if seen[grade] {
			return fmt.Errorf("line %d: duplicate grade %s", r.line, grade)
		}
		seen[grade] = true

		density, err := r.float("lane_density")
		if err != nil {
			return err
		}
		t.los = append(t.los, LOSBoundary{Grade: grade, Density: density})
	}
	for _, g := range grades {
		if !seen[g] {
			return fmt.Errorf("missing grade %s", g)
		}
	}

	sort.SliceStable(t.los, func(i, j int) bool { return t.los[i].Density < t.los[j].Density })
	for i, b := range t.los {
		if b.Grade != grades[i] || (i > 0 && b.Density == t.los[i-1].Density) {
			return errors.New("boundaries must strictly increase from A to E")
		}
	}
	return nil
}
