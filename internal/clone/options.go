package clone

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	yaml "gopkg.in/yaml.v2"
)

// Options carries every parameter of a clone run. All values are resolved
// before the pipeline starts; nothing is re-read afterwards.
type Options struct {
	SourceResourceGroup  string `yaml:"sourceResourceGroup"`
	SourceSubscriptionID string `yaml:"sourceSubscriptionId"`
	SourceVMName         string `yaml:"sourceVmName"`

	DestVNetName          string `yaml:"destVnetName"`
	DestVNetResourceGroup string `yaml:"destVnetResourceGroup"`
	DestLocation          string `yaml:"destLocation"`
	DestResourceGroup     string `yaml:"destResourceGroup"`
	DestSubscriptionID    string `yaml:"destSubscriptionId"`
	DestVMName            string `yaml:"destVmName"`

	KeepSourceComputerName     bool   `yaml:"keepSourceComputerName"`
	ForceAcceleratedNetworking bool   `yaml:"forceAcceleratedNetworking"`
	UseExistingAvailabilitySet bool   `yaml:"useExistingAvailabilitySet"`
	ExistingAvailabilitySet    string `yaml:"existingAvailabilitySet"`
	CopyTags                   bool   `yaml:"copyTags"`

	OSSnapshotName        string `yaml:"osSnapshotName"`
	DataSnapshotName      string `yaml:"dataSnapshotName"`
	SnapshotResourceGroup string `yaml:"snapshotResourceGroup"`
}

// flagNames maps Options fields to their CLI flag, for the config-file
// overlay: a file value applies only when the flag was not set explicitly.
var flagNames = map[string]string{
	"SourceResourceGroup":        "resource-group",
	"SourceSubscriptionID":       "subscription-id",
	"SourceVMName":               "vm-name",
	"DestVNetName":               "vnet-name",
	"DestVNetResourceGroup":      "vnet-resource-group",
	"DestLocation":               "location",
	"DestResourceGroup":          "dest-resource-group",
	"DestSubscriptionID":         "dest-subscription-id",
	"DestVMName":                 "dest-vm-name",
	"KeepSourceComputerName":     "keep-source-computer-name",
	"ForceAcceleratedNetworking": "force-accelerated-networking",
	"UseExistingAvailabilitySet": "use-existing-avset",
	"ExistingAvailabilitySet":    "existing-avset-name",
	"CopyTags":                   "copy-tags",
	"OSSnapshotName":             "os-snapshot-name",
	"DataSnapshotName":           "data-snapshot-name",
	"SnapshotResourceGroup":      "snapshot-resource-group",
}

// MergeFile overlays values from a YAML config file onto o. Explicit CLI
// flags win; only fields whose flag was left untouched take the file value.
func (o *Options) MergeFile(path string, flags *pflag.FlagSet) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	var file Options
	if err := yaml.UnmarshalStrict(raw, &file); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	changed := func(field string) bool {
		name, ok := flagNames[field]
		return ok && flags.Changed(name)
	}

	merge := func(field string, dst, src *string) {
		if !changed(field) && *src != "" {
			*dst = *src
		}
	}
	mergeBool := func(field string, dst *bool, src bool) {
		if !changed(field) {
			*dst = src
		}
	}

	merge("SourceResourceGroup", &o.SourceResourceGroup, &file.SourceResourceGroup)
	merge("SourceSubscriptionID", &o.SourceSubscriptionID, &file.SourceSubscriptionID)
	merge("SourceVMName", &o.SourceVMName, &file.SourceVMName)
	merge("DestVNetName", &o.DestVNetName, &file.DestVNetName)
	merge("DestVNetResourceGroup", &o.DestVNetResourceGroup, &file.DestVNetResourceGroup)
	merge("DestLocation", &o.DestLocation, &file.DestLocation)
	merge("DestResourceGroup", &o.DestResourceGroup, &file.DestResourceGroup)
	merge("DestSubscriptionID", &o.DestSubscriptionID, &file.DestSubscriptionID)
	merge("DestVMName", &o.DestVMName, &file.DestVMName)
	merge("ExistingAvailabilitySet", &o.ExistingAvailabilitySet, &file.ExistingAvailabilitySet)
	merge("OSSnapshotName", &o.OSSnapshotName, &file.OSSnapshotName)
	merge("DataSnapshotName", &o.DataSnapshotName, &file.DataSnapshotName)
	merge("SnapshotResourceGroup", &o.SnapshotResourceGroup, &file.SnapshotResourceGroup)
	mergeBool("KeepSourceComputerName", &o.KeepSourceComputerName, file.KeepSourceComputerName)
	mergeBool("ForceAcceleratedNetworking", &o.ForceAcceleratedNetworking, file.ForceAcceleratedNetworking)
	mergeBool("CopyTags", &o.CopyTags, file.CopyTags)
	// The avset flag defaults to true, so an absent file key must keep the
	// default rather than force false.
	if !changed("UseExistingAvailabilitySet") && fileSetsAvset(raw) {
		o.UseExistingAvailabilitySet = file.UseExistingAvailabilitySet
	}
	return nil
}

// fileSetsAvset reports whether the config file mentions the
// useExistingAvailabilitySet key at all, so an absent key keeps the flag's
// default instead of forcing false.
func fileSetsAvset(raw []byte) bool {
	var probe map[string]interface{}
	if err := yaml.Unmarshal(raw, &probe); err != nil {
		return false
	}
	_, ok := probe["useExistingAvailabilitySet"]
	return ok
}

// ApplyDefaults fills the optional parameters that default to source-side
// values.
func (o *Options) ApplyDefaults() {
	if o.DestResourceGroup == "" {
		o.DestResourceGroup = o.SourceResourceGroup
	}
	if o.DestSubscriptionID == "" {
		o.DestSubscriptionID = o.SourceSubscriptionID
	}
	if o.DestVNetResourceGroup == "" {
		o.DestVNetResourceGroup = o.SourceResourceGroup
	}
	if o.SnapshotResourceGroup == "" {
		o.SnapshotResourceGroup = o.SourceResourceGroup
	}
}

// Validate checks that every required parameter is present.
func (o *Options) Validate() error {
	switch {
	case o.SourceResourceGroup == "":
		return fmt.Errorf("a source resource group is required (--resource-group)")
	case o.SourceSubscriptionID == "":
		return fmt.Errorf("a source subscription id is required (--subscription-id)")
	case o.SourceVMName == "":
		return fmt.Errorf("a source virtual machine name is required (--vm-name)")
	case o.DestVNetName == "":
		return fmt.Errorf("a destination virtual network name is required (--vnet-name)")
	}
	return nil
}
