package clone

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v2"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	log "github.com/sirupsen/logrus"

	"github.com/vexxhost/clonekit/internal/azure"
)

// runContext is the resolved state shared by every pipeline stage: source
// objects read once up front, plus the identity allocated for this run.
type runContext struct {
	sourceRG *armresources.ResourceGroup
	destRG   *armresources.ResourceGroup
	sourceVM *armcompute.VirtualMachine

	// location is the effective destination location: the explicit
	// override when given, else the destination resource group's.
	location string

	suffix     int
	baseName   string
	destVMName string
}

// resolveContext looks up the source resource group and VM, fetches or
// creates the destination resource group, and pins the effective destination
// location. All failures here are fatal.
func (c *Cloner) resolveContext(ctx context.Context) (*runContext, error) {
	srcRG, err := c.src.GetResourceGroup(ctx, c.opts.SourceResourceGroup)
	if err != nil {
		return nil, fmt.Errorf("source resource group %q not found: %w", c.opts.SourceResourceGroup, err)
	}

	destRG, err := c.dst.GetResourceGroup(ctx, c.opts.DestResourceGroup)
	if err != nil {
		if !azure.IsNotFoundError(err) {
			return nil, fmt.Errorf("looking up destination resource group %q: %w", c.opts.DestResourceGroup, err)
		}
		c.log.WithField("resource_group", c.opts.DestResourceGroup).
			Info("Destination resource group does not exist, creating it")
		destRG, err = c.dst.CreateResourceGroup(ctx, c.opts.DestResourceGroup, armresources.ResourceGroup{
			Location: srcRG.Location,
		})
		if err != nil {
			return nil, fmt.Errorf("creating destination resource group %q: %w", c.opts.DestResourceGroup, err)
		}
	}

	location := c.opts.DestLocation
	if location == "" {
		location = toValue(destRG.Location)
	}

	vm, err := c.src.GetVirtualMachine(ctx, c.opts.SourceResourceGroup, c.opts.SourceVMName)
	if err != nil {
		return nil, fmt.Errorf("source virtual machine %q not found in resource group %q: %w",
			c.opts.SourceVMName, c.opts.SourceResourceGroup, err)
	}

	rctx := &runContext{
		sourceRG: srcRG,
		destRG:   destRG,
		sourceVM: vm,
		location: location,
		suffix:   newRunSuffix(),
		baseName: resourceBaseName(c.opts.SourceVMName),
	}
	rctx.destVMName = c.opts.DestVMName
	if rctx.destVMName == "" {
		rctx.destVMName = defaultVMName(c.opts.SourceVMName, rctx.suffix)
	}

	c.log.WithFields(log.Fields{
		"source_vm":  c.opts.SourceVMName,
		"dest_vm":    rctx.destVMName,
		"dest_rg":    toValue(destRG.Name),
		"location":   rctx.location,
		"run_suffix": rctx.suffix,
	}).Info("Resolved clone context")

	return rctx, nil
}

// sameResourceGroup reports whether source and destination resolve to the
// same resource group, which requires both the group name and the
// subscription to match.
func (c *Cloner) sameResourceGroup() bool {
	return c.opts.SourceSubscriptionID == c.opts.DestSubscriptionID &&
		strings.EqualFold(c.opts.SourceResourceGroup, c.opts.DestResourceGroup)
}
