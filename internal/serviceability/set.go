package serviceability

import "strings"

// mapPincodeSet implements PincodeSet on a map.
type mapPincodeSet struct {
	pincodes map[string]struct{}
}

// NewMapPincodeSet creates a set holding the given pincodes.
func NewMapPincodeSet(pincodes ...string) PincodeSet {
	return newMapPincodeSet(pincodes...)
}

func newMapPincodeSet(pincodes ...string) *mapPincodeSet {
	s := &mapPincodeSet{
		pincodes: make(map[string]struct{}, len(pincodes)),
	}
	for _, p := range pincodes {
		s.Add(p)
	}
	return s
}

func (s *mapPincodeSet) Contains(pincode string) bool {
	_, ok := s.pincodes[normalise(pincode)]
	return ok
}

func (s *mapPincodeSet) Size() int {
	return len(s.pincodes)
}

// Add inserts a pincode. Blank entries are ignored.
func (s *mapPincodeSet) Add(pincode string) {
	if p := normalise(pincode); p != "" {
		s.pincodes[p] = struct{}{}
	}
}

func normalise(pincode string) string {
	return strings.ToUpper(strings.Join(strings.Fields(pincode), ""))
}
