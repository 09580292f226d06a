package clone

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v2"
	log "github.com/sirupsen/logrus"
)

// assembleAndCreate combines size, tags, plan, availability set, NICs and the
// storage profile into the clone definition and submits the single create
// call. A creation error here is fatal for the run.
func (c *Cloner) assembleAndCreate(
	ctx context.Context,
	rctx *runContext,
	availabilitySetID string,
	nics []nicResult,
	storage *armcompute.StorageProfile,
) (*armcompute.VirtualMachine, error) {
	src := rctx.sourceVM

	refs := make([]*armcompute.NetworkInterfaceReference, 0, len(nics))
	for _, nic := range nics {
		refs = append(refs, &armcompute.NetworkInterfaceReference{
			ID: to.Ptr(nic.ID),
			Properties: &armcompute.NetworkInterfaceReferenceProperties{
				Primary: to.Ptr(nic.Primary),
			},
		})
	}

	vm := armcompute.VirtualMachine{
		Location: to.Ptr(rctx.location),
		Properties: &armcompute.VirtualMachineProperties{
			StorageProfile: storage,
			NetworkProfile: &armcompute.NetworkProfile{NetworkInterfaces: refs},
		},
	}
	if src.Properties != nil && src.Properties.HardwareProfile != nil {
		vm.Properties.HardwareProfile = &armcompute.HardwareProfile{
			VMSize: src.Properties.HardwareProfile.VMSize,
		}
	}
	if c.opts.CopyTags {
		vm.Tags = src.Tags
	}
	// Marketplace images are licensed through the plan; without it the
	// clone is refused by the platform.
	if src.Plan != nil {
		vm.Plan = src.Plan
	}
	if availabilitySetID != "" {
		vm.Properties.AvailabilitySet = &armcompute.SubResource{ID: to.Ptr(availabilitySetID)}
	}

	size := ""
	if vm.Properties.HardwareProfile != nil {
		size = string(toValue(vm.Properties.HardwareProfile.VMSize))
	}
	c.log.WithFields(log.Fields{
		"vm":   rctx.destVMName,
		"size": size,
		"nics": len(refs),
	}).Info("Submitting virtual machine create")

	created, err := c.dst.CreateVirtualMachine(ctx, toValue(rctx.destRG.Name), rctx.destVMName, vm)
	if err != nil {
		return nil, fmt.Errorf("creating virtual machine %q: %w", rctx.destVMName, err)
	}
	return created, nil
}
