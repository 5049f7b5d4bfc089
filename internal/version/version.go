// ABOUTME: Product and version identification
// ABOUTME: Shared by the receiver, sender and mDNS advertisement
package version

const (
	// Version is the software version
	Version = "0.3.0"

	// Product is the product name
	Product = "screamsink"
)

// String returns "product version"
func String() string {
	return Product + " " + Version
}
