package clone

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v2"
	log "github.com/sirupsen/logrus"
)

// diskSource is one entry of the snapshot set the disk builder consumes.
// Index 0 of the set is always the OS disk; the rest are data disks carrying
// the attachment parameters of the disk they were taken from.
type diskSource struct {
	SnapshotID   string
	SnapshotName string

	// OSType is populated for the OS entry when the snapshot or source
	// disk records it; nil otherwise.
	OSType *armcompute.OperatingSystemTypes

	LUN     int32
	Caching armcompute.CachingTypes
}

// provideSnapshots yields the snapshot set for the run. With no
// --os-snapshot-name it snapshots every disk attached to the source VM; with
// one it reuses the named snapshots instead. The two modes are mutually
// exclusive.
func (c *Cloner) provideSnapshots(ctx context.Context, rctx *runContext) ([]diskSource, error) {
	var (
		set []diskSource
		err error
	)
	if c.opts.OSSnapshotName != "" {
		set, err = c.reuseSnapshots(ctx, rctx)
	} else {
		// The mode is selected by the OS snapshot name alone; a stray data
		// snapshot name does not switch it.
		if c.opts.DataSnapshotName != "" {
			c.log.WithField("snapshot", c.opts.DataSnapshotName).
				Warn("Ignoring --data-snapshot-name: reuse mode needs --os-snapshot-name")
		}
		set, err = c.createSnapshots(ctx, rctx)
	}
	if err != nil {
		return nil, err
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("no usable snapshots for source VM %q", c.opts.SourceVMName)
	}
	return set, nil
}

// createSnapshots takes a fresh snapshot of the OS disk and of every data
// disk, data disks in LUN order. Snapshots land in the destination resource
// group; their location is the source VM's when it differs from the
// destination location, so the copy stays region-local to the source disks.
func (c *Cloner) createSnapshots(ctx context.Context, rctx *runContext) ([]diskSource, error) {
	vm := rctx.sourceVM
	if vm.Properties == nil || vm.Properties.StorageProfile == nil || vm.Properties.StorageProfile.OSDisk == nil {
		return nil, fmt.Errorf("source VM %q has no storage profile", c.opts.SourceVMName)
	}
	storage := vm.Properties.StorageProfile
	if storage.OSDisk.ManagedDisk == nil || storage.OSDisk.ManagedDisk.ID == nil {
		return nil, fmt.Errorf("source VM %q does not use managed disks", c.opts.SourceVMName)
	}

	location := rctx.location
	if vmLoc := toValue(vm.Location); vmLoc != "" && !strings.EqualFold(vmLoc, rctx.location) {
		location = vmLoc
	}

	osName := fmt.Sprintf("%s-os-snapshot-%d", rctx.baseName, rctx.suffix)
	osSnap, err := c.takeSnapshot(ctx, rctx, osName, location, *storage.OSDisk.ManagedDisk.ID, storage.OSDisk.OSType)
	if err != nil {
		return nil, fmt.Errorf("snapshotting OS disk of %q: %w", c.opts.SourceVMName, err)
	}
	set := []diskSource{{
		SnapshotID:   toValue(osSnap.ID),
		SnapshotName: osName,
		OSType:       storage.OSDisk.OSType,
	}}

	dataDisks := append([]*armcompute.DataDisk(nil), storage.DataDisks...)
	sort.SliceStable(dataDisks, func(i, j int) bool {
		return toValue(dataDisks[i].Lun) < toValue(dataDisks[j].Lun)
	})
	for _, disk := range dataDisks {
		if disk.ManagedDisk == nil || disk.ManagedDisk.ID == nil {
			return nil, fmt.Errorf("data disk %q of VM %q is not a managed disk", toValue(disk.Name), c.opts.SourceVMName)
		}
		lun := toValue(disk.Lun)
		name := fmt.Sprintf("%s-data-%d-snapshot-%d", rctx.baseName, lun, rctx.suffix)
		snap, err := c.takeSnapshot(ctx, rctx, name, location, *disk.ManagedDisk.ID, nil)
		if err != nil {
			return nil, fmt.Errorf("snapshotting data disk at LUN %d of %q: %w", lun, c.opts.SourceVMName, err)
		}
		caching := armcompute.CachingTypesNone
		if disk.Caching != nil {
			caching = *disk.Caching
		}
		set = append(set, diskSource{
			SnapshotID:   toValue(snap.ID),
			SnapshotName: name,
			LUN:          lun,
			Caching:      caching,
		})
	}

	c.log.WithFields(log.Fields{
		"snapshots": len(set),
		"location":  location,
	}).Info("Created snapshots of every source disk")
	return set, nil
}

func (c *Cloner) takeSnapshot(
	ctx context.Context,
	rctx *runContext,
	name, location, sourceDiskID string,
	osType *armcompute.OperatingSystemTypes,
) (*armcompute.Snapshot, error) {
	c.log.WithFields(log.Fields{
		"snapshot":    name,
		"source_disk": sourceDiskID,
	}).Info("Creating snapshot")

	return c.dst.CreateSnapshot(ctx, toValue(rctx.destRG.Name), name, armcompute.Snapshot{
		Location: to.Ptr(location),
		Properties: &armcompute.SnapshotProperties{
			OSType: osType,
			CreationData: &armcompute.CreationData{
				CreateOption:     to.Ptr(armcompute.DiskCreateOptionCopy),
				SourceResourceID: to.Ptr(sourceDiskID),
			},
		},
	})
}

// reuseSnapshots looks up the caller-named OS snapshot, plus at most one data
// snapshot. Multi-data-disk clones from existing snapshots are deliberately
// unsupported: a data snapshot name is only honored for the single-disk
// layout, the legacy behavior this tool keeps.
func (c *Cloner) reuseSnapshots(ctx context.Context, rctx *runContext) ([]diskSource, error) {
	osSnap, err := c.src.GetSnapshot(ctx, c.opts.SnapshotResourceGroup, c.opts.OSSnapshotName)
	if err != nil {
		return nil, fmt.Errorf("existing OS disk snapshot %q not found in resource group %q: %w",
			c.opts.OSSnapshotName, c.opts.SnapshotResourceGroup, err)
	}
	var osType *armcompute.OperatingSystemTypes
	if osSnap.Properties != nil {
		osType = osSnap.Properties.OSType
	}
	set := []diskSource{{
		SnapshotID:   toValue(osSnap.ID),
		SnapshotName: c.opts.OSSnapshotName,
		OSType:       osType,
	}}
	c.log.WithField("snapshot", c.opts.OSSnapshotName).Info("Reusing existing OS disk snapshot")

	if c.opts.DataSnapshotName == "" {
		return set, nil
	}

	var dataDisks []*armcompute.DataDisk
	if sp := rctx.sourceVM.Properties; sp != nil && sp.StorageProfile != nil {
		dataDisks = sp.StorageProfile.DataDisks
	}
	if len(dataDisks) > 1 {
		c.log.WithFields(log.Fields{
			"snapshot":   c.opts.DataSnapshotName,
			"data_disks": len(dataDisks),
		}).Warn("Ignoring the data disk snapshot: the source VM has more than one data disk")
		return set, nil
	}

	dataSnap, err := c.src.GetSnapshot(ctx, c.opts.SnapshotResourceGroup, c.opts.DataSnapshotName)
	if err != nil {
		return nil, fmt.Errorf("existing data disk snapshot %q not found in resource group %q: %w",
			c.opts.DataSnapshotName, c.opts.SnapshotResourceGroup, err)
	}

	// Attachment parameters come from the source VM's data disk when it
	// still has one; otherwise LUN 0 with caching off.
	lun := int32(0)
	caching := armcompute.CachingTypesNone
	if len(dataDisks) > 0 {
		first := dataDisks[0]
		lun = toValue(first.Lun)
		if first.Caching != nil {
			caching = *first.Caching
		}
	}
	set = append(set, diskSource{
		SnapshotID:   toValue(dataSnap.ID),
		SnapshotName: c.opts.DataSnapshotName,
		LUN:          lun,
		Caching:      caching,
	})
	c.log.WithField("snapshot", c.opts.DataSnapshotName).Info("Reusing existing data disk snapshot")
	return set, nil
}
