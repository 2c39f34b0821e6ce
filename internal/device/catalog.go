package device

// Product codes are at least five characters and open with a fixed
// letter prefix; the two characters after it name the product family.
const (
	productPrefix    = 'H'
	minProductLength = 5
)

// Family segments the catalog recognizes.
const (
	familyBulb  = "60"
	familyStrip = "61"
)

// whiteBulbOverride is the one bulb-family code that ships without the
// color hardware; it dims but holds no RGB engine.
const whiteBulbOverride = "H6085"

// CatalogEntry pairs a product-code predicate with the constructor for
// matching devices.
type CatalogEntry struct {
	// Match reports whether this entry builds devices for the code.
	Match func(productCode string) bool

	// Build constructs the device for a matched descriptor. Returning
	// nil skips the device.
	Build func(d Descriptor) *Device
}

// Catalog maps product codes to device constructors. Entries are
// checked in order and the first match wins. A catalog is assembled
// once at client construction and never mutated afterwards, so lookups
// need no locking.
type Catalog struct {
	entries []CatalogEntry
}

// NewCatalog assembles a catalog from explicit entries.
func NewCatalog(entries ...CatalogEntry) *Catalog {
	return &Catalog{entries: entries}
}

// Build constructs a device for the descriptor, or returns nil when no
// entry recognizes the product code. Unknown hardware is expected
// traffic on shared accounts and is not an error.
func (c *Catalog) Build(d Descriptor) *Device {
	for _, entry := range c.entries {
		if entry.Match(d.ProductCode) {
			return entry.Build(d)
		}
	}
	return nil
}

// DefaultCatalog returns the catalog for the supported product
// families: bulbs, which are full-color except for one dim-only code,
// and LED strips, which are always full-color.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		CatalogEntry{
			Match: familyMatcher(familyBulb),
			Build: func(d Descriptor) *Device {
				if d.ProductCode == whiteBulbOverride {
					return newDevice(d, VariantDimmer)
				}
				return newDevice(d, VariantRGBTemperature)
			},
		},
		CatalogEntry{
			Match: familyMatcher(familyStrip),
			Build: func(d Descriptor) *Device {
				return newDevice(d, VariantRGBTemperature)
			},
		},
	)
}

// familyMatcher builds a predicate that accepts codes of the given
// family segment.
func familyMatcher(family string) func(string) bool {
	return func(code string) bool {
		seg, ok := productFamily(code)
		return ok && seg == family
	}
}

// productFamily extracts the two-character family segment, rejecting
// codes too short or missing the letter prefix.
func productFamily(code string) (string, bool) {
	if len(code) < minProductLength || code[0] != productPrefix {
		return "", false
	}
	return code[1:3], true
}

// newDevice constructs a device from a descriptor and capability set,
// seeding broker support and the initial connection status from the
// enumeration hint.
func newDevice(d Descriptor, caps Capability) *Device {
	dev := &Device{
		Identifier:     d.Identifier,
		ProductCode:    d.ProductCode,
		Name:           d.Name,
		Topic:          d.Topic,
		SupportsBroker: d.Connectivity != HintNoBroker,
		Capabilities:   caps,
	}
	if d.Connectivity == HintOnline {
		dev.Status.SetBroker(true)
	}
	return dev
}
