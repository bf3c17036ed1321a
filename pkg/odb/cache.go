package odb

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/renameio/v2"

	"github.com/aurorasat/candb/internal/logging"
	"github.com/aurorasat/candb/pkg/od"
	"github.com/aurorasat/candb/pkg/odconfig"
)

// Building a full mission database parses every YAML config, so repeated CLI
// invocations cache the built database as CBOR under the user cache dir,
// keyed by the configs version.

type cachedRef struct {
	Index    uint16 `cbor:"1,keyasint"`
	Subindex uint8  `cbor:"2,keyasint"`
}

type cachedVariable struct {
	Subindex          uint8            `cbor:"1,keyasint"`
	Name              string           `cbor:"2,keyasint"`
	Description       string           `cbor:"3,keyasint,omitempty"`
	DataType          uint8            `cbor:"4,keyasint"`
	Access            string           `cbor:"5,keyasint"`
	Default           any              `cbor:"6,keyasint,omitempty"`
	Unit              string           `cbor:"7,keyasint,omitempty"`
	Factor            float64          `cbor:"8,keyasint"`
	LowLimit          *int64           `cbor:"9,keyasint,omitempty"`
	HighLimit         *int64           `cbor:"10,keyasint,omitempty"`
	BitDefinitions    map[string][]int `cbor:"11,keyasint,omitempty"`
	ValueDescriptions map[string]int64 `cbor:"12,keyasint,omitempty"`
	PDOMappable       bool             `cbor:"13,keyasint,omitempty"`
}

type cachedObject struct {
	Index       uint16           `cbor:"1,keyasint"`
	Name        string           `cbor:"2,keyasint"`
	Description string           `cbor:"3,keyasint,omitempty"`
	Kind        string           `cbor:"4,keyasint"` // variable, record or array
	Variable    *cachedVariable  `cbor:"5,keyasint,omitempty"`
	Subs        []cachedVariable `cbor:"6,keyasint,omitempty"`
}

type cachedOD struct {
	NodeID     uint8          `cbor:"1,keyasint"`
	Bitrate    int            `cbor:"2,keyasint"`
	DeviceInfo od.DeviceInfo  `cbor:"3,keyasint"`
	Objects    []cachedObject `cbor:"4,keyasint"`
}

type cachedDatabase struct {
	Version      string                 `cbor:"1,keyasint"`
	Mission      int                    `cbor:"2,keyasint"`
	Cards        map[string]Card        `cbor:"3,keyasint"`
	ODs          map[string]cachedOD    `cbor:"4,keyasint"`
	Beacon       []cachedRef            `cbor:"5,keyasint"`
	Persist      []cachedRef            `cbor:"6,keyasint"`
	BeaconConfig *odconfig.BeaconConfig `cbor:"7,keyasint"`
	FWBase       cachedOD               `cbor:"8,keyasint"`
}

// CacheDir returns the directory holding cached databases for this configs
// version.
func CacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locating user cache dir: %w", err)
	}
	return filepath.Join(base, "candb", Version), nil
}

func cachePath(m Mission) (string, error) {
	dir, err := CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, m.Filename()+".cbor"), nil
}

// Load returns the database for a mission, using the on-disk cache when a
// valid entry exists and rebuilding from the embedded configs otherwise.
// A stale or corrupt cache entry is rebuilt, never an error.
func Load(m Mission) (*Database, error) {
	log := logging.WithComponent("cache")

	path, err := cachePath(m)
	if err == nil {
		if db, err := readCache(path, m); err == nil {
			log.Debug().Str("path", path).Msg("loaded database from cache")
			return db, nil
		}
	}

	db, err := Build(m)
	if err != nil {
		return nil, err
	}
	if path != "" {
		// failing to cache is not failing to load
		if err := writeCache(path, db); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("could not cache database")
		}
	}
	return db, nil
}

// CleanCache removes cached databases left behind by other configs versions,
// keeping the current version's entries.
func CleanCache() error {
	base, err := os.UserCacheDir()
	if err != nil {
		return fmt.Errorf("locating user cache dir: %w", err)
	}
	root := filepath.Join(base, "candb")
	entries, err := os.ReadDir(root)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cleaning cache: %w", err)
	}
	for _, entry := range entries {
		if entry.Name() == Version {
			continue
		}
		if err := os.RemoveAll(filepath.Join(root, entry.Name())); err != nil {
			return fmt.Errorf("cleaning cache: %w", err)
		}
	}
	return nil
}

// ClearCache removes every cached database, all versions included.
func ClearCache() error {
	base, err := os.UserCacheDir()
	if err != nil {
		return fmt.Errorf("locating user cache dir: %w", err)
	}
	if err := os.RemoveAll(filepath.Join(base, "candb")); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	return nil
}

func readCache(path string, m Mission) (*Database, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cached cachedDatabase
	if err := cbor.Unmarshal(data, &cached); err != nil {
		return nil, fmt.Errorf("decoding cache %s: %w", path, err)
	}
	if cached.Version != Version || cached.Mission != int(m) {
		return nil, errors.New("stale cache entry")
	}
	return restoreDatabase(&cached)
}

func writeCache(path string, db *Database) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := cbor.Marshal(snapshotDatabase(db))
	if err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}
	return renameio.WriteFile(path, data, 0o644)
}

func snapshotDatabase(db *Database) *cachedDatabase {
	cached := &cachedDatabase{
		Version:      Version,
		Mission:      int(db.Mission),
		Cards:        db.Cards,
		ODs:          map[string]cachedOD{},
		Beacon:       snapshotRefs(db.Beacon),
		Persist:      snapshotRefs(db.Persist),
		BeaconConfig: db.BeaconConfig,
		FWBase:       snapshotOD(db.FWBase),
	}
	for name, dict := range db.ODs {
		cached.ODs[name] = snapshotOD(dict)
	}
	return cached
}

func snapshotRefs(vars []*od.Variable) []cachedRef {
	refs := make([]cachedRef, len(vars))
	for i, v := range vars {
		refs[i] = cachedRef{Index: v.Index, Subindex: v.Subindex}
	}
	return refs
}

func snapshotOD(dict *od.ObjectDictionary) cachedOD {
	cached := cachedOD{
		NodeID:     dict.NodeID,
		Bitrate:    dict.Bitrate,
		DeviceInfo: dict.DeviceInfo,
	}
	for _, index := range dict.Indices() {
		cached.Objects = append(cached.Objects, snapshotObject(dict.Object(index)))
	}
	return cached
}

func snapshotObject(obj od.Object) cachedObject {
	switch o := obj.(type) {
	case *od.Variable:
		v := snapshotVar(o)
		return cachedObject{Index: o.Index, Name: o.Name, Kind: "variable", Variable: &v}
	case *od.Record:
		return cachedObject{
			Index: o.Index, Name: o.Name, Description: o.Description,
			Kind: "record", Subs: snapshotSubs(o.Subs()),
		}
	case *od.Array:
		return cachedObject{
			Index: o.Index, Name: o.Name, Description: o.Description,
			Kind: "array", Subs: snapshotSubs(o.Subs()),
		}
	}
	panic(fmt.Sprintf("unknown object type %T", obj))
}

func snapshotSubs(subs []*od.Variable) []cachedVariable {
	cached := make([]cachedVariable, len(subs))
	for i, v := range subs {
		cached[i] = snapshotVar(v)
	}
	return cached
}

func snapshotVar(v *od.Variable) cachedVariable {
	return cachedVariable{
		Subindex:          v.Subindex,
		Name:              v.Name,
		Description:       v.Description,
		DataType:          uint8(v.DataType),
		Access:            string(v.Access),
		Default:           v.Default,
		Unit:              v.Unit,
		Factor:            v.Factor,
		LowLimit:          v.LowLimit,
		HighLimit:         v.HighLimit,
		BitDefinitions:    v.BitDefinitions,
		ValueDescriptions: v.ValueDescriptions,
		PDOMappable:       v.PDOMappable,
	}
}

func restoreDatabase(cached *cachedDatabase) (*Database, error) {
	db := &Database{
		Mission:      Mission(cached.Mission),
		Cards:        cached.Cards,
		ODs:          map[string]*od.ObjectDictionary{},
		BeaconConfig: cached.BeaconConfig,
	}
	for name, cachedDict := range cached.ODs {
		dict, err := restoreOD(cachedDict)
		if err != nil {
			return nil, fmt.Errorf("restoring %s OD: %w", name, err)
		}
		db.ODs[name] = dict
	}

	c3OD, ok := db.ODs["c3"]
	if !ok {
		return nil, errors.New("cache entry has no c3 OD")
	}
	var err error
	if db.Beacon, err = restoreRefs(c3OD, cached.Beacon); err != nil {
		return nil, err
	}
	if db.Persist, err = restoreRefs(c3OD, cached.Persist); err != nil {
		return nil, err
	}
	if db.FWBase, err = restoreOD(cached.FWBase); err != nil {
		return nil, fmt.Errorf("restoring firmware base OD: %w", err)
	}
	return db, nil
}

func restoreRefs(dict *od.ObjectDictionary, refs []cachedRef) ([]*od.Variable, error) {
	vars := make([]*od.Variable, len(refs))
	for i, ref := range refs {
		v, err := dict.EntryAt(ref.Index, ref.Subindex)
		if err != nil {
			return nil, err
		}
		vars[i] = v
	}
	return vars, nil
}

func restoreOD(cached cachedOD) (*od.ObjectDictionary, error) {
	dict := od.New()
	dict.NodeID = cached.NodeID
	dict.Bitrate = cached.Bitrate
	dict.DeviceInfo = cached.DeviceInfo

	for _, cachedObj := range cached.Objects {
		obj, err := restoreObject(cachedObj)
		if err != nil {
			return nil, err
		}
		if err := dict.Add(obj); err != nil {
			return nil, err
		}
	}
	return dict, nil
}

func restoreObject(cached cachedObject) (od.Object, error) {
	switch cached.Kind {
	case "variable":
		if cached.Variable == nil {
			return nil, fmt.Errorf("0x%04X: variable object without variable", cached.Index)
		}
		return restoreVar(cached.Index, *cached.Variable), nil
	case "record":
		rec := od.NewRecord(cached.Name, cached.Index)
		rec.Description = cached.Description
		return rec, restoreSubs(rec.Sub(0), rec.Add, cached)
	case "array":
		arr := od.NewArray(cached.Name, cached.Index)
		arr.Description = cached.Description
		return arr, restoreSubs(arr.Sub(0), arr.Add, cached)
	default:
		return nil, fmt.Errorf("0x%04X: unknown object kind %q", cached.Index, cached.Kind)
	}
}

func restoreSubs(sub0 *od.Variable, add func(*od.Variable) error, cached cachedObject) error {
	for _, sub := range cached.Subs {
		if sub.Subindex == 0 {
			// NewRecord/NewArray already created subindex 0
			*sub0 = *restoreVar(cached.Index, sub)
			continue
		}
		if err := add(restoreVar(cached.Index, sub)); err != nil {
			return err
		}
	}
	return nil
}

func restoreVar(index uint16, cached cachedVariable) *od.Variable {
	return &od.Variable{
		Index:             index,
		Subindex:          cached.Subindex,
		Name:              cached.Name,
		Description:       cached.Description,
		DataType:          od.DataType(cached.DataType),
		Access:            od.Access(cached.Access),
		Default:           restoreDefault(od.DataType(cached.DataType), cached.Default),
		Unit:              cached.Unit,
		Factor:            cached.Factor,
		LowLimit:          cached.LowLimit,
		HighLimit:         cached.HighLimit,
		BitDefinitions:    cached.BitDefinitions,
		ValueDescriptions: cached.ValueDescriptions,
		PDOMappable:       cached.PDOMappable,
	}
}

// restoreDefault undoes CBOR's integer widening: CBOR has one integer major
// type per sign, so a positive int64 default comes back as a uint64.
func restoreDefault(dt od.DataType, def any) any {
	switch d := def.(type) {
	case uint64:
		if dt.Signed() {
			return int64(d)
		}
	case int64:
		if !dt.Signed() && dt.Integer() {
			return uint64(d)
		}
	}
	return def
}
