package clone

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork"
	log "github.com/sirupsen/logrus"
)

// nicResult is one cloned NIC as the VM assembler consumes it.
type nicResult struct {
	ID      string
	Primary bool
}

// cloneNetwork rebuilds every NIC of the source VM inside the destination
// resource group: new public IPs substituted per IP configuration, subnets
// re-homed onto the destination VNet by name, accelerated-networking and
// IP-forwarding flags carried over. A source NIC that cannot be read is
// skipped with a warning; the destination VNet itself is required.
func (c *Cloner) cloneNetwork(ctx context.Context, rctx *runContext) ([]nicResult, error) {
	vnet, err := c.dst.GetVirtualNetwork(ctx, c.opts.DestVNetResourceGroup, c.opts.DestVNetName)
	if err != nil {
		return nil, fmt.Errorf("destination virtual network %q not found in resource group %q: %w",
			c.opts.DestVNetName, c.opts.DestVNetResourceGroup, err)
	}

	vm := rctx.sourceVM
	if vm.Properties == nil || vm.Properties.NetworkProfile == nil {
		return nil, fmt.Errorf("source VM %q has no network profile", c.opts.SourceVMName)
	}

	var results []nicResult
	for i, ref := range vm.Properties.NetworkProfile.NetworkInterfaces {
		if ref.ID == nil {
			continue
		}
		rid, err := arm.ParseResourceID(*ref.ID)
		if err != nil {
			c.log.WithError(err).WithField("nic_id", *ref.ID).Warn("Skipping NIC with unparseable id")
			continue
		}
		srcNic, err := c.src.GetInterface(ctx, rid.ResourceGroupName, rid.Name)
		if err != nil {
			c.log.WithError(err).WithField("nic", rid.Name).Warn("Cannot read source NIC, skipping it")
			continue
		}

		primary := i == 0
		if ref.Properties != nil && ref.Properties.Primary != nil {
			primary = *ref.Properties.Primary
		}

		cloned, err := c.cloneInterface(ctx, rctx, srcNic, vnet)
		if err != nil {
			return nil, err
		}
		results = append(results, nicResult{ID: toValue(cloned.ID), Primary: primary})
	}
	return results, nil
}

// cloneInterface recreates one NIC in the destination. The NIC is created
// with its first IP configuration, then updated with the complete rebuilt
// list, matching the two-step persistence of the interface API.
func (c *Cloner) cloneInterface(
	ctx context.Context,
	rctx *runContext,
	src *armnetwork.Interface,
	vnet *armnetwork.VirtualNetwork,
) (*armnetwork.Interface, error) {
	srcName := toValue(src.Name)
	name := fmt.Sprintf("%s-%d", srcName, rctx.suffix)

	if src.Properties == nil || len(src.Properties.IPConfigurations) == 0 {
		return nil, fmt.Errorf("source NIC %q has no IP configurations", srcName)
	}

	accelerated := toValue(src.Properties.EnableAcceleratedNetworking) || c.opts.ForceAcceleratedNetworking

	ipConfigs := make([]*armnetwork.InterfaceIPConfiguration, 0, len(src.Properties.IPConfigurations))
	for j, cfg := range src.Properties.IPConfigurations {
		rebuilt, err := c.rebuildIPConfiguration(ctx, rctx, srcName, j, cfg, vnet)
		if err != nil {
			return nil, err
		}
		ipConfigs = append(ipConfigs, rebuilt)
	}

	params := armnetwork.Interface{
		Location: to.Ptr(rctx.location),
		Properties: &armnetwork.InterfacePropertiesFormat{
			EnableAcceleratedNetworking: to.Ptr(accelerated),
			EnableIPForwarding:          src.Properties.EnableIPForwarding,
			IPConfigurations:            ipConfigs[:1],
		},
	}
	created, err := c.dst.CreateOrUpdateInterface(ctx, toValue(rctx.destRG.Name), name, params)
	if err != nil {
		return nil, fmt.Errorf("creating network interface %q: %w", name, err)
	}

	// Second pass persists the full IP-configuration list and the flags the
	// create call does not carry.
	created.Properties.IPConfigurations = ipConfigs
	created.Properties.EnableAcceleratedNetworking = to.Ptr(accelerated)
	created.Properties.EnableIPForwarding = src.Properties.EnableIPForwarding
	if c.opts.CopyTags {
		created.Tags = src.Tags
	}
	updated, err := c.dst.CreateOrUpdateInterface(ctx, toValue(rctx.destRG.Name), name, *created)
	if err != nil {
		return nil, fmt.Errorf("updating network interface %q: %w", name, err)
	}

	c.log.WithFields(log.Fields{
		"nic":         name,
		"source_nic":  srcName,
		"ip_configs":  len(ipConfigs),
		"accelerated": accelerated,
	}).Info("Cloned network interface")
	return updated, nil
}

// rebuildIPConfiguration copies one IP configuration for the destination NIC:
// identity fields cleared, public IP replaced with a freshly created one, and
// the subnet re-pointed at the same-named subnet of the destination VNet.
func (c *Cloner) rebuildIPConfiguration(
	ctx context.Context,
	rctx *runContext,
	nicName string,
	index int,
	src *armnetwork.InterfaceIPConfiguration,
	vnet *armnetwork.VirtualNetwork,
) (*armnetwork.InterfaceIPConfiguration, error) {
	cfg := *src
	cfg.ID = nil
	cfg.Etag = nil
	if src.Properties != nil {
		props := *src.Properties
		cfg.Properties = &props
	} else {
		cfg.Properties = &armnetwork.InterfaceIPConfigurationPropertiesFormat{}
	}

	if src.Properties != nil && src.Properties.PublicIPAddress != nil {
		pip, err := c.clonePublicIP(ctx, rctx, nicName, index, src.Properties.PublicIPAddress)
		if err != nil {
			return nil, err
		}
		cfg.Properties.PublicIPAddress = pip
	}

	if cfg.Properties.Subnet != nil {
		if match := matchSubnet(cfg.Properties.Subnet, vnet); match != nil {
			cfg.Properties.Subnet = &armnetwork.Subnet{ID: match.ID}
		} else {
			c.log.WithFields(log.Fields{
				"nic":    nicName,
				"subnet": subnetName(cfg.Properties.Subnet),
				"vnet":   c.opts.DestVNetName,
			}).Warn("No matching subnet in the destination VNet, keeping the source subnet reference")
		}
	}
	return &cfg, nil
}

// clonePublicIP creates a fresh public IP in the destination mirroring the
// source address's allocation method, sku and zones. A source address that
// cannot be read is logged and replaced with platform defaults.
func (c *Cloner) clonePublicIP(
	ctx context.Context,
	rctx *runContext,
	nicName string,
	index int,
	ref *armnetwork.PublicIPAddress,
) (*armnetwork.PublicIPAddress, error) {
	params := armnetwork.PublicIPAddress{
		Location: to.Ptr(rctx.location),
	}

	name := fmt.Sprintf("%s-pip-%d-%d", nicName, index, rctx.suffix)
	if ref.ID != nil {
		rid, err := arm.ParseResourceID(*ref.ID)
		if err == nil {
			name = fmt.Sprintf("%s-%d", rid.Name, rctx.suffix)
			srcPIP, err := c.src.GetPublicIPAddress(ctx, rid.ResourceGroupName, rid.Name)
			if err != nil {
				c.log.WithError(err).WithField("public_ip", rid.Name).
					Warn("Cannot read source public IP, creating one with default settings")
			} else {
				if srcPIP.Properties != nil {
					params.Properties = &armnetwork.PublicIPAddressPropertiesFormat{
						PublicIPAllocationMethod: srcPIP.Properties.PublicIPAllocationMethod,
					}
				}
				params.SKU = srcPIP.SKU
				params.Zones = srcPIP.Zones
				if c.opts.CopyTags {
					params.Tags = srcPIP.Tags
				}
			}
		}
	}

	created, err := c.dst.CreatePublicIPAddress(ctx, toValue(rctx.destRG.Name), name, params)
	if err != nil {
		return nil, fmt.Errorf("creating public IP %q: %w", name, err)
	}
	c.log.WithField("public_ip", name).Info("Created public IP for cloned NIC")
	return &armnetwork.PublicIPAddress{ID: created.ID}, nil
}

// matchSubnet finds the destination VNet subnet with the same name as the
// source subnet reference.
func matchSubnet(src *armnetwork.Subnet, vnet *armnetwork.VirtualNetwork) *armnetwork.Subnet {
	want := subnetName(src)
	if want == "" || vnet.Properties == nil {
		return nil
	}
	for _, sub := range vnet.Properties.Subnets {
		if strings.EqualFold(toValue(sub.Name), want) {
			return sub
		}
	}
	return nil
}

// subnetName extracts a subnet's name from its model or, failing that, the
// last segment of its resource id.
func subnetName(sub *armnetwork.Subnet) string {
	if sub.Name != nil && *sub.Name != "" {
		return *sub.Name
	}
	if sub.ID == nil {
		return ""
	}
	parts := strings.Split(*sub.ID, "/")
	return parts[len(parts)-1]
}
