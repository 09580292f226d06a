package clone

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v2"
	log "github.com/sirupsen/logrus"
)

// buildStorageProfile creates one managed disk per snapshot entry and
// assembles the attach-style storage profile for the new VM: entry 0 becomes
// the OS disk, the rest become data disks keeping their LUN and caching.
func (c *Cloner) buildStorageProfile(ctx context.Context, rctx *runContext, set []diskSource) (*armcompute.StorageProfile, error) {
	storageType := c.sourceStorageType(ctx, rctx)
	windows := c.isWindowsClone(rctx, set)

	osDiskName := fmt.Sprintf("%s-osdisk-%d", rctx.baseName, rctx.suffix)
	osDisk, err := c.copyDiskFromSnapshot(ctx, rctx, osDiskName, storageType, set[0])
	if err != nil {
		return nil, fmt.Errorf("creating OS disk from snapshot %q: %w", set[0].SnapshotName, err)
	}

	profile := &armcompute.StorageProfile{
		OSDisk: newOSDiskAttachment(osDiskName, osDisk, windows),
	}
	if src := sourceOSDisk(rctx); src != nil && src.Caching != nil {
		profile.OSDisk.Caching = src.Caching
	}

	for _, entry := range set[1:] {
		name := fmt.Sprintf("%s-datadisk-%d-%d", rctx.baseName, entry.LUN, rctx.suffix)
		disk, err := c.copyDiskFromSnapshot(ctx, rctx, name, storageType, entry)
		if err != nil {
			return nil, fmt.Errorf("creating data disk from snapshot %q: %w", entry.SnapshotName, err)
		}
		profile.DataDisks = append(profile.DataDisks, &armcompute.DataDisk{
			Name:         to.Ptr(name),
			Lun:          to.Ptr(entry.LUN),
			Caching:      to.Ptr(entry.Caching),
			CreateOption: to.Ptr(armcompute.DiskCreateOptionTypesAttach),
			ManagedDisk:  &armcompute.ManagedDiskParameters{ID: disk.ID},
		})
	}

	c.log.WithFields(log.Fields{
		"os_disk":    osDiskName,
		"data_disks": len(profile.DataDisks),
		"windows":    windows,
	}).Info("Built storage profile from snapshot set")
	return profile, nil
}

// copyDiskFromSnapshot provisions one managed disk in the destination with
// createOption Copy from the snapshot.
func (c *Cloner) copyDiskFromSnapshot(
	ctx context.Context,
	rctx *runContext,
	name string,
	storageType armcompute.DiskStorageAccountTypes,
	src diskSource,
) (*armcompute.Disk, error) {
	return c.dst.CreateDisk(ctx, toValue(rctx.destRG.Name), name, armcompute.Disk{
		Location: to.Ptr(rctx.location),
		SKU:      &armcompute.DiskSKU{Name: to.Ptr(storageType)},
		Properties: &armcompute.DiskProperties{
			OSType: src.OSType,
			CreationData: &armcompute.CreationData{
				CreateOption:     to.Ptr(armcompute.DiskCreateOptionCopy),
				SourceResourceID: to.Ptr(src.SnapshotID),
			},
		},
	})
}

// sourceStorageType reads the storage sku from the source OS managed disk
// resource. The VM model's own copy of the sku is unreliable when the source
// VM is deallocated, so the disk itself is authoritative; an unreadable disk
// degrades to Standard_LRS with a warning.
func (c *Cloner) sourceStorageType(ctx context.Context, rctx *runContext) armcompute.DiskStorageAccountTypes {
	fallback := armcompute.DiskStorageAccountTypesStandardLRS

	osDisk := sourceOSDisk(rctx)
	if osDisk == nil || osDisk.ManagedDisk == nil || osDisk.ManagedDisk.ID == nil {
		return fallback
	}
	rid, err := arm.ParseResourceID(*osDisk.ManagedDisk.ID)
	if err != nil {
		c.log.WithError(err).Warn("Cannot parse source OS disk id, defaulting to Standard_LRS")
		return fallback
	}
	disk, err := c.src.GetDisk(ctx, rid.ResourceGroupName, rid.Name)
	if err != nil {
		c.log.WithError(err).WithField("disk", rid.Name).
			Warn("Cannot read source OS disk, defaulting to Standard_LRS")
		return fallback
	}
	if disk.SKU == nil || disk.SKU.Name == nil {
		return fallback
	}
	return *disk.SKU.Name
}

// isWindowsClone decides the OS family for the new VM's OS disk. The source
// OS profile is authoritative; for deallocated VMs with no profile the
// storage-profile OS type decides, then the snapshot's.
func (c *Cloner) isWindowsClone(rctx *runContext, set []diskSource) bool {
	if props := rctx.sourceVM.Properties; props != nil && props.OSProfile != nil {
		if props.OSProfile.WindowsConfiguration != nil {
			return true
		}
		if props.OSProfile.LinuxConfiguration != nil {
			return false
		}
	}
	if osDisk := sourceOSDisk(rctx); osDisk != nil && osDisk.OSType != nil {
		return *osDisk.OSType == armcompute.OperatingSystemTypesWindows
	}
	if set[0].OSType != nil {
		return *set[0].OSType == armcompute.OperatingSystemTypesWindows
	}
	return false
}

// sourceOSDisk is the source VM's OS-disk model, nil when the storage
// profile is incomplete.
func sourceOSDisk(rctx *runContext) *armcompute.OSDisk {
	if props := rctx.sourceVM.Properties; props != nil && props.StorageProfile != nil {
		return props.StorageProfile.OSDisk
	}
	return nil
}

// newOSDiskAttachment dispatches to the OS-specific attach configuration.
func newOSDiskAttachment(name string, disk *armcompute.Disk, windows bool) *armcompute.OSDisk {
	if windows {
		return windowsOSDisk(name, disk)
	}
	return linuxOSDisk(name, disk)
}

func windowsOSDisk(name string, disk *armcompute.Disk) *armcompute.OSDisk {
	return &armcompute.OSDisk{
		Name:         to.Ptr(name),
		OSType:       to.Ptr(armcompute.OperatingSystemTypesWindows),
		CreateOption: to.Ptr(armcompute.DiskCreateOptionTypesAttach),
		ManagedDisk:  &armcompute.ManagedDiskParameters{ID: disk.ID},
	}
}

func linuxOSDisk(name string, disk *armcompute.Disk) *armcompute.OSDisk {
	return &armcompute.OSDisk{
		Name:         to.Ptr(name),
		OSType:       to.Ptr(armcompute.OperatingSystemTypesLinux),
		CreateOption: to.Ptr(armcompute.DiskCreateOptionTypesAttach),
		ManagedDisk:  &armcompute.ManagedDiskParameters{ID: disk.ID},
	}
}
