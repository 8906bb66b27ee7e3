// Package services holds the error taxonomy and context plumbing shared by
// driveline's downstream clients. Concrete clients live in subpackages.
package services
