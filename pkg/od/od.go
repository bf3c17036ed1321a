package od

import (
	"fmt"
	"sort"
)

// Object is any top-level OD entry: a *Variable, *Record, or *Array.
type Object interface {
	ObjIndex() uint16
	ObjName() string
}

// group is the shared container behind Record and Array.
type group struct {
	Index       uint16
	Name        string
	Description string

	subs   []*Variable
	bySub  map[uint8]*Variable
	byName map[string]*Variable
}

func newGroup(name string, index uint16) group {
	return group{
		Index:  index,
		Name:   name,
		bySub:  map[uint8]*Variable{},
		byName: map[string]*Variable{},
	}
}

// ObjIndex implements Object.
func (g *group) ObjIndex() uint16 { return g.Index }

// ObjName implements Object.
func (g *group) ObjName() string { return g.Name }

// Add inserts a subindex entry, keeping subindices ordered.
func (g *group) Add(v *Variable) error {
	if _, ok := g.bySub[v.Subindex]; ok {
		return fmt.Errorf("subindex 0x%X already in 0x%04X", v.Subindex, g.Index)
	}
	v.Index = g.Index
	g.bySub[v.Subindex] = v
	g.byName[v.Name] = v
	g.subs = append(g.subs, v)
	sort.Slice(g.subs, func(i, j int) bool { return g.subs[i].Subindex < g.subs[j].Subindex })
	return nil
}

// Sub returns the entry at the given subindex, or nil.
func (g *group) Sub(subindex uint8) *Variable { return g.bySub[subindex] }

// SubNamed returns the entry with the given name, or nil.
func (g *group) SubNamed(name string) *Variable { return g.byName[name] }

// Subs returns all entries ordered by subindex, including subindex 0.
func (g *group) Subs() []*Variable { return g.subs }

// Len returns the number of entries, including subindex 0.
func (g *group) Len() int { return len(g.subs) }

// Record is an OD record object: heterogeneous subindex entries.
type Record struct{ group }

// NewRecord creates a record with the standard subindex 0
// (highest_subindex_supported, const uint8).
func NewRecord(name string, index uint16) *Record {
	r := &Record{newGroup(name, index)}
	r.mustAddSub0()
	return r
}

// Array is an OD array object: homogeneous subindex entries.
type Array struct{ group }

// NewArray creates an array with the standard subindex 0.
func NewArray(name string, index uint16) *Array {
	a := &Array{newGroup(name, index)}
	a.mustAddSub0()
	return a
}

func (g *group) mustAddSub0() {
	sub0 := &Variable{
		Index:    g.Index,
		Subindex: 0,
		Name:     "highest_subindex_supported",
		DataType: Unsigned8,
		Access:   AccessConst,
		Default:  uint64(0),
		Factor:   1,
	}
	if err := g.Add(sub0); err != nil {
		panic(err) // fresh group, cannot collide
	}
}

// AddMember inserts a subindex entry and bumps subindex 0's default to the
// highest subindex present.
func (g *group) AddMember(v *Variable) error {
	if err := g.Add(v); err != nil {
		return err
	}
	sub0 := g.bySub[0]
	if max := g.subs[len(g.subs)-1].Subindex; sub0 != nil {
		sub0.Default = uint64(max)
	}
	return nil
}

// DeviceInfo mirrors the [DeviceInfo] section of a DCF.
type DeviceInfo struct {
	VendorName      string
	VendorNumber    uint32
	ProductName     string
	ProductNumber   uint32
	RevisionNumber  uint32
	OrderCode       uint32
	BaudRates       []int // kbps
	Granularity     uint8
	NrOfRPDO        int
	NrOfTPDO        int
	LSSSupported    bool
	GroupMessaging  bool
	DynamicChannels bool
}

// ObjectDictionary is a single card's object dictionary: objects ordered by
// index with name lookup.
type ObjectDictionary struct {
	NodeID     uint8
	Bitrate    int // bps
	DeviceInfo DeviceInfo

	indices []uint16
	objects map[uint16]Object
	names   map[string]Object
}

// New returns an empty object dictionary.
func New() *ObjectDictionary {
	return &ObjectDictionary{
		objects: map[uint16]Object{},
		names:   map[string]Object{},
	}
}

// Add inserts an object. The index must not already be present.
func (od *ObjectDictionary) Add(obj Object) error {
	index := obj.ObjIndex()
	if _, ok := od.objects[index]; ok {
		return fmt.Errorf("index 0x%04X already in OD", index)
	}
	od.objects[index] = obj
	od.names[obj.ObjName()] = obj
	od.indices = append(od.indices, index)
	sort.Slice(od.indices, func(i, j int) bool { return od.indices[i] < od.indices[j] })
	return nil
}

// Replace inserts or overwrites an object without the duplicate check.
func (od *ObjectDictionary) Replace(obj Object) {
	index := obj.ObjIndex()
	if _, ok := od.objects[index]; !ok {
		od.indices = append(od.indices, index)
		sort.Slice(od.indices, func(i, j int) bool { return od.indices[i] < od.indices[j] })
	}
	od.objects[index] = obj
	od.names[obj.ObjName()] = obj
}

// Object returns the object at the given index, or nil.
func (od *ObjectDictionary) Object(index uint16) Object { return od.objects[index] }

// Contains reports whether an index is present.
func (od *ObjectDictionary) Contains(index uint16) bool {
	_, ok := od.objects[index]
	return ok
}

// Named returns the top-level object with the given name, or nil.
func (od *ObjectDictionary) Named(name string) Object { return od.names[name] }

// Indices returns all object indices in ascending order.
func (od *ObjectDictionary) Indices() []uint16 { return od.indices }

// Len returns the number of top-level objects.
func (od *ObjectDictionary) Len() int { return len(od.indices) }

// Entry resolves a reference of one or two names: a top-level variable name,
// or an object name plus a subindex name.
func (od *ObjectDictionary) Entry(ref ...string) (*Variable, error) {
	switch len(ref) {
	case 1:
		obj := od.names[ref[0]]
		if obj == nil {
			return nil, fmt.Errorf("no object named %q", ref[0])
		}
		v, ok := obj.(*Variable)
		if !ok {
			return nil, fmt.Errorf("object %q is not a variable", ref[0])
		}
		return v, nil
	case 2:
		obj := od.names[ref[0]]
		if obj == nil {
			return nil, fmt.Errorf("no object named %q", ref[0])
		}
		var v *Variable
		switch o := obj.(type) {
		case *Record:
			v = o.SubNamed(ref[1])
		case *Array:
			v = o.SubNamed(ref[1])
		default:
			return nil, fmt.Errorf("object %q has no subindexes", ref[0])
		}
		if v == nil {
			return nil, fmt.Errorf("object %q has no entry named %q", ref[0], ref[1])
		}
		return v, nil
	default:
		return nil, fmt.Errorf("reference must be 1 or 2 names, got %d", len(ref))
	}
}

// EntryAt resolves an (index, subindex) pair. Subindex 0 on a plain variable
// returns the variable itself.
func (od *ObjectDictionary) EntryAt(index uint16, subindex uint8) (*Variable, error) {
	obj := od.objects[index]
	if obj == nil {
		return nil, fmt.Errorf("no object at index 0x%04X", index)
	}
	switch o := obj.(type) {
	case *Variable:
		if subindex != 0 {
			return nil, fmt.Errorf("0x%04X is a variable, subindex 0x%X not valid", index, subindex)
		}
		return o, nil
	case *Record:
		if v := o.Sub(subindex); v != nil {
			return v, nil
		}
	case *Array:
		if v := o.Sub(subindex); v != nil {
			return v, nil
		}
	}
	return nil, fmt.Errorf("no entry at 0x%04X sub 0x%X", index, subindex)
}
