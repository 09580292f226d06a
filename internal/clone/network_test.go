package clone

import (
	"context"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v2"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// addPublicIP attaches a Standard static public IP to the given IP
// configuration of the seeded source NIC and registers the address resource.
func addPublicIP(f *fakeARM, cfgIndex int) string {
	pipID := f.id("Microsoft.Network", "publicIPAddresses", "RG1", "vm1-pip")
	f.pips[f.key("RG1", "vm1-pip")] = &armnetwork.PublicIPAddress{
		ID:   to.Ptr(pipID),
		Name: to.Ptr("vm1-pip"),
		SKU: &armnetwork.PublicIPAddressSKU{
			Name: to.Ptr(armnetwork.PublicIPAddressSKUNameStandard),
		},
		Properties: &armnetwork.PublicIPAddressPropertiesFormat{
			PublicIPAllocationMethod: to.Ptr(armnetwork.IPAllocationMethodStatic),
		},
	}
	nic := f.nics[f.key("RG1", "vm1-nic")]
	nic.Properties.IPConfigurations[cfgIndex].Properties.PublicIPAddress = &armnetwork.PublicIPAddress{
		ID: to.Ptr(pipID),
	}
	return pipID
}

// addIPConfiguration appends a second IP configuration to the seeded source
// NIC, on the same subnet.
func addIPConfiguration(f *fakeARM, name string) {
	nic := f.nics[f.key("RG1", "vm1-nic")]
	subnet := nic.Properties.IPConfigurations[0].Properties.Subnet
	nic.Properties.IPConfigurations = append(nic.Properties.IPConfigurations,
		&armnetwork.InterfaceIPConfiguration{
			ID:   to.Ptr(*nic.ID + "/ipConfigurations/" + name),
			Name: to.Ptr(name),
			Properties: &armnetwork.InterfaceIPConfigurationPropertiesFormat{
				Subnet: subnet,
			},
		})
}

func TestCloneNetworkRebuildsEveryIPConfiguration(t *testing.T) {
	f := newFakeARM(testSubA)
	vm := seedSource(f)
	srcPIP := addPublicIP(f, 0)
	addIPConfiguration(f, "ipconfig2")

	c := New(baseOptions(), f, f)
	results, err := c.cloneNetwork(context.Background(), testRunContext(f, vm))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Primary)
	assert.Contains(t, results[0].ID, "vm1-nic-123456789")

	// Created with the first configuration, updated with the full list.
	writes := f.nicWrites["vm1-nic-123456789"]
	require.Len(t, writes, 2)
	assert.Len(t, writes[0].Properties.IPConfigurations, 1)
	require.Len(t, writes[1].Properties.IPConfigurations, 2)

	for _, cfg := range writes[1].Properties.IPConfigurations {
		assert.Nil(t, cfg.ID)
		assert.Nil(t, cfg.Etag)
	}

	// The first configuration points at a freshly created public IP, not the
	// source's, and the new address mirrors the source's settings.
	first := writes[1].Properties.IPConfigurations[0]
	require.NotNil(t, first.Properties.PublicIPAddress)
	newPIPID := *first.Properties.PublicIPAddress.ID
	assert.NotEqual(t, srcPIP, newPIPID)
	assert.Contains(t, newPIPID, "vm1-pip-123456789")

	created := f.pips[f.key("RG1", "vm1-pip-123456789")]
	require.NotNil(t, created)
	assert.Equal(t, armnetwork.IPAllocationMethodStatic, *created.Properties.PublicIPAllocationMethod)
	assert.Equal(t, armnetwork.PublicIPAddressSKUNameStandard, *created.SKU.Name)

	// The second configuration keeps no public IP and lands on the
	// destination subnet.
	second := writes[1].Properties.IPConfigurations[1]
	assert.Nil(t, second.Properties.PublicIPAddress)
	require.NotNil(t, second.Properties.Subnet)
	assert.Contains(t, *second.Properties.Subnet.ID, "vnet1/subnets/default")
}

func TestCloneNetworkForcesAcceleratedNetworking(t *testing.T) {
	f := newFakeARM(testSubA)
	vm := seedSource(f)
	f.nics[f.key("RG1", "vm1-nic")].Properties.EnableAcceleratedNetworking = to.Ptr(false)

	opts := baseOptions()
	opts.ForceAcceleratedNetworking = true
	c := New(opts, f, f)

	_, err := c.cloneNetwork(context.Background(), testRunContext(f, vm))
	require.NoError(t, err)

	writes := f.nicWrites["vm1-nic-123456789"]
	require.Len(t, writes, 2)
	assert.True(t, *writes[1].Properties.EnableAcceleratedNetworking)
}

func TestCloneNetworkSkipsUnreadableNIC(t *testing.T) {
	f := newFakeARM(testSubA)
	vm := seedSource(f)
	vm.Properties.NetworkProfile.NetworkInterfaces = append(
		vm.Properties.NetworkProfile.NetworkInterfaces,
		&armcompute.NetworkInterfaceReference{
			ID: to.Ptr(f.id("Microsoft.Network", "networkInterfaces", "RG1", "gone-nic")),
		})

	c := New(baseOptions(), f, f)
	results, err := c.cloneNetwork(context.Background(), testRunContext(f, vm))
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestCloneNetworkKeepsSubnetWithoutMatch(t *testing.T) {
	f := newFakeARM(testSubA)
	vm := seedSource(f)
	srcSubnetID := *f.nics[f.key("RG1", "vm1-nic")].Properties.IPConfigurations[0].Properties.Subnet.ID
	f.vnets[f.key("RG1", "vnet1")].Properties.Subnets[0].Name = to.Ptr("other")
	f.vnets[f.key("RG1", "vnet1")].Properties.Subnets[0].ID = to.Ptr(
		f.id("Microsoft.Network", "virtualNetworks", "RG1", "vnet1") + "/subnets/other")

	c := New(baseOptions(), f, f)
	_, err := c.cloneNetwork(context.Background(), testRunContext(f, vm))
	require.NoError(t, err)

	writes := f.nicWrites["vm1-nic-123456789"]
	require.Len(t, writes, 2)
	cfg := writes[1].Properties.IPConfigurations[0]
	require.NotNil(t, cfg.Properties.Subnet)
	assert.Equal(t, srcSubnetID, *cfg.Properties.Subnet.ID)
}

func TestCloneNetworkRequiresDestinationVNet(t *testing.T) {
	f := newFakeARM(testSubA)
	vm := seedSource(f)
	delete(f.vnets, f.key("RG1", "vnet1"))

	c := New(baseOptions(), f, f)
	_, err := c.cloneNetwork(context.Background(), testRunContext(f, vm))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"vnet1" not found`)
}
