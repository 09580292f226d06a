package clone

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v2"
	log "github.com/sirupsen/logrus"

	"github.com/vexxhost/clonekit/internal/azure"
)

// Fallback domain counts when the source availability set cannot be read.
// Two fault domains are accepted in every region.
const (
	defaultUpdateDomains = int32(5)
	defaultFaultDomains  = int32(2)
)

// resolveAvailabilitySet returns the availability-set id for the clone, or
// "" when the source VM is not in one. Resolution order: reuse the source set
// in place, reuse a caller-named set in the destination, create a new set
// mirroring the source's domains and sku.
func (c *Cloner) resolveAvailabilitySet(ctx context.Context, rctx *runContext) (string, error) {
	vm := rctx.sourceVM
	if vm.Properties == nil || vm.Properties.AvailabilitySet == nil || vm.Properties.AvailabilitySet.ID == nil {
		c.log.Debug("Source VM has no availability set")
		return "", nil
	}
	sourceSetID := *vm.Properties.AvailabilitySet.ID

	if c.opts.UseExistingAvailabilitySet {
		if c.sameResourceGroup() {
			c.log.WithField("availability_set", sourceSetID).Info("Reusing the source availability set")
			return sourceSetID, nil
		}
		if c.opts.ExistingAvailabilitySet != "" {
			existing, err := c.dst.GetAvailabilitySet(ctx, toValue(rctx.destRG.Name), c.opts.ExistingAvailabilitySet)
			if err == nil {
				c.log.WithField("availability_set", c.opts.ExistingAvailabilitySet).
					Info("Reusing existing availability set in the destination resource group")
				return toValue(existing.ID), nil
			}
			if !azure.IsNotFoundError(err) {
				return "", fmt.Errorf("looking up availability set %q: %w", c.opts.ExistingAvailabilitySet, err)
			}
			c.log.WithField("availability_set", c.opts.ExistingAvailabilitySet).
				Warn("Named availability set not found in destination, creating a new one")
		}
	}

	return c.createAvailabilitySet(ctx, rctx, sourceSetID)
}

// createAvailabilitySet builds a new set in the destination, copying domain
// counts and sku from the source set when it can still be read.
func (c *Cloner) createAvailabilitySet(ctx context.Context, rctx *runContext, sourceSetID string) (string, error) {
	params := armcompute.AvailabilitySet{
		Location: to.Ptr(rctx.location),
		SKU:      &armcompute.SKU{Name: to.Ptr("Aligned")},
		Properties: &armcompute.AvailabilitySetProperties{
			PlatformUpdateDomainCount: to.Ptr(defaultUpdateDomains),
			PlatformFaultDomainCount:  to.Ptr(defaultFaultDomains),
		},
	}

	if sourceSet := c.readSourceAvailabilitySet(ctx, sourceSetID); sourceSet != nil {
		if sourceSet.Properties != nil {
			if v := sourceSet.Properties.PlatformUpdateDomainCount; v != nil {
				params.Properties.PlatformUpdateDomainCount = v
			}
			if v := sourceSet.Properties.PlatformFaultDomainCount; v != nil {
				params.Properties.PlatformFaultDomainCount = v
			}
		}
		if sourceSet.SKU != nil && sourceSet.SKU.Name != nil {
			params.SKU.Name = sourceSet.SKU.Name
		}
		if c.opts.CopyTags {
			params.Tags = sourceSet.Tags
		}
	}

	name := fmt.Sprintf("%s-avset-%d", rctx.baseName, rctx.suffix)
	created, err := c.dst.CreateAvailabilitySet(ctx, toValue(rctx.destRG.Name), name, params)
	if err != nil {
		return "", fmt.Errorf("creating availability set %q: %w", name, err)
	}
	c.log.WithFields(log.Fields{
		"availability_set": name,
		"update_domains":   toValue(params.Properties.PlatformUpdateDomainCount),
		"fault_domains":    toValue(params.Properties.PlatformFaultDomainCount),
	}).Info("Created availability set")
	return toValue(created.ID), nil
}

// readSourceAvailabilitySet fetches the source VM's set; nil when the id is
// malformed or the set is gone, in which case the caller keeps its defaults.
func (c *Cloner) readSourceAvailabilitySet(ctx context.Context, sourceSetID string) *armcompute.AvailabilitySet {
	rid, err := arm.ParseResourceID(sourceSetID)
	if err != nil {
		c.log.WithError(err).WithField("availability_set_id", sourceSetID).
			Warn("Cannot parse source availability-set id, using default settings")
		return nil
	}
	set, err := c.src.GetAvailabilitySet(ctx, rid.ResourceGroupName, rid.Name)
	if err != nil {
		c.log.WithError(err).WithField("availability_set", rid.Name).
			Warn("Cannot read source availability set, using default settings")
		return nil
	}
	return set
}
