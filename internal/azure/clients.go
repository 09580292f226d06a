package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v2"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armsubscriptions"
	log "github.com/sirupsen/logrus"

	"github.com/vexxhost/clonekit/internal/progress"
)

// ClientSet bundles the ARM clients for one subscription and exposes fully
// synchronous operations: every Begin* call is polled to completion before
// returning, so callers see plain value-or-error semantics.
type ClientSet struct {
	SubscriptionID string

	groups    *armresources.ResourceGroupsClient
	subs      *armsubscriptions.Client
	vms       *armcompute.VirtualMachinesClient
	disks     *armcompute.DisksClient
	snapshots *armcompute.SnapshotsClient
	avsets    *armcompute.AvailabilitySetsClient
	nics      *armnetwork.InterfacesClient
	publicIPs *armnetwork.PublicIPAddressesClient
	vnets     *armnetwork.VirtualNetworksClient
}

// NewDefaultCredential builds the standard credential chain (environment,
// workload identity, managed identity, az CLI).
func NewDefaultCredential() (azcore.TokenCredential, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("building Azure credential: %w", err)
	}
	return cred, nil
}

// NewClientSet constructs the ARM clients for the given subscription. The
// credential is shared so that source and destination client sets reuse one
// token cache.
func NewClientSet(subscriptionID string, cred azcore.TokenCredential) (*ClientSet, error) {
	cs := &ClientSet{SubscriptionID: subscriptionID}

	var err error
	if cs.groups, err = armresources.NewResourceGroupsClient(subscriptionID, cred, nil); err != nil {
		return nil, fmt.Errorf("creating resource groups client: %w", err)
	}
	if cs.subs, err = armsubscriptions.NewClient(cred, nil); err != nil {
		return nil, fmt.Errorf("creating subscriptions client: %w", err)
	}
	if cs.vms, err = armcompute.NewVirtualMachinesClient(subscriptionID, cred, nil); err != nil {
		return nil, fmt.Errorf("creating virtual machines client: %w", err)
	}
	if cs.disks, err = armcompute.NewDisksClient(subscriptionID, cred, nil); err != nil {
		return nil, fmt.Errorf("creating disks client: %w", err)
	}
	if cs.snapshots, err = armcompute.NewSnapshotsClient(subscriptionID, cred, nil); err != nil {
		return nil, fmt.Errorf("creating snapshots client: %w", err)
	}
	if cs.avsets, err = armcompute.NewAvailabilitySetsClient(subscriptionID, cred, nil); err != nil {
		return nil, fmt.Errorf("creating availability sets client: %w", err)
	}
	if cs.nics, err = armnetwork.NewInterfacesClient(subscriptionID, cred, nil); err != nil {
		return nil, fmt.Errorf("creating network interfaces client: %w", err)
	}
	if cs.publicIPs, err = armnetwork.NewPublicIPAddressesClient(subscriptionID, cred, nil); err != nil {
		return nil, fmt.Errorf("creating public IP addresses client: %w", err)
	}
	if cs.vnets, err = armnetwork.NewVirtualNetworksClient(subscriptionID, cred, nil); err != nil {
		return nil, fmt.Errorf("creating virtual networks client: %w", err)
	}

	log.WithField("subscription_id", subscriptionID).Debug("Initialized ARM client set")
	return cs, nil
}

// GetSubscription resolves the subscription itself, mostly to fail fast on
// bad ids and to log the display name.
func (cs *ClientSet) GetSubscription(ctx context.Context) (*armsubscriptions.Subscription, error) {
	resp, err := cs.subs.Get(ctx, cs.SubscriptionID, nil)
	if err != nil {
		return nil, err
	}
	return &resp.Subscription, nil
}

func (cs *ClientSet) GetResourceGroup(ctx context.Context, name string) (*armresources.ResourceGroup, error) {
	resp, err := cs.groups.Get(ctx, name, nil)
	if err != nil {
		return nil, err
	}
	return &resp.ResourceGroup, nil
}

func (cs *ClientSet) CreateResourceGroup(ctx context.Context, name string, group armresources.ResourceGroup) (*armresources.ResourceGroup, error) {
	resp, err := cs.groups.CreateOrUpdate(ctx, name, group, nil)
	if err != nil {
		return nil, err
	}
	return &resp.ResourceGroup, nil
}

func (cs *ClientSet) GetVirtualMachine(ctx context.Context, resourceGroup, name string) (*armcompute.VirtualMachine, error) {
	resp, err := cs.vms.Get(ctx, resourceGroup, name, nil)
	if err != nil {
		return nil, err
	}
	return &resp.VirtualMachine, nil
}

func (cs *ClientSet) CreateVirtualMachine(ctx context.Context, resourceGroup, name string, vm armcompute.VirtualMachine) (*armcompute.VirtualMachine, error) {
	spin := progress.NewSpinner("Creating virtual machine " + name)
	defer spin.Stop()

	poller, err := cs.vms.BeginCreateOrUpdate(ctx, resourceGroup, name, vm, nil)
	if err != nil {
		return nil, err
	}
	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &resp.VirtualMachine, nil
}

func (cs *ClientSet) GetDisk(ctx context.Context, resourceGroup, name string) (*armcompute.Disk, error) {
	resp, err := cs.disks.Get(ctx, resourceGroup, name, nil)
	if err != nil {
		return nil, err
	}
	return &resp.Disk, nil
}

func (cs *ClientSet) CreateDisk(ctx context.Context, resourceGroup, name string, disk armcompute.Disk) (*armcompute.Disk, error) {
	spin := progress.NewSpinner("Creating managed disk " + name)
	defer spin.Stop()

	poller, err := cs.disks.BeginCreateOrUpdate(ctx, resourceGroup, name, disk, nil)
	if err != nil {
		return nil, err
	}
	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &resp.Disk, nil
}

func (cs *ClientSet) GetSnapshot(ctx context.Context, resourceGroup, name string) (*armcompute.Snapshot, error) {
	resp, err := cs.snapshots.Get(ctx, resourceGroup, name, nil)
	if err != nil {
		return nil, err
	}
	return &resp.Snapshot, nil
}

func (cs *ClientSet) CreateSnapshot(ctx context.Context, resourceGroup, name string, snapshot armcompute.Snapshot) (*armcompute.Snapshot, error) {
	spin := progress.NewSpinner("Creating snapshot " + name)
	defer spin.Stop()

	poller, err := cs.snapshots.BeginCreateOrUpdate(ctx, resourceGroup, name, snapshot, nil)
	if err != nil {
		return nil, err
	}
	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &resp.Snapshot, nil
}

func (cs *ClientSet) GetAvailabilitySet(ctx context.Context, resourceGroup, name string) (*armcompute.AvailabilitySet, error) {
	resp, err := cs.avsets.Get(ctx, resourceGroup, name, nil)
	if err != nil {
		return nil, err
	}
	return &resp.AvailabilitySet, nil
}

func (cs *ClientSet) CreateAvailabilitySet(ctx context.Context, resourceGroup, name string, set armcompute.AvailabilitySet) (*armcompute.AvailabilitySet, error) {
	resp, err := cs.avsets.CreateOrUpdate(ctx, resourceGroup, name, set, nil)
	if err != nil {
		return nil, err
	}
	return &resp.AvailabilitySet, nil
}

func (cs *ClientSet) GetInterface(ctx context.Context, resourceGroup, name string) (*armnetwork.Interface, error) {
	resp, err := cs.nics.Get(ctx, resourceGroup, name, nil)
	if err != nil {
		return nil, err
	}
	return &resp.Interface, nil
}

func (cs *ClientSet) CreateOrUpdateInterface(ctx context.Context, resourceGroup, name string, nic armnetwork.Interface) (*armnetwork.Interface, error) {
	poller, err := cs.nics.BeginCreateOrUpdate(ctx, resourceGroup, name, nic, nil)
	if err != nil {
		return nil, err
	}
	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &resp.Interface, nil
}

func (cs *ClientSet) GetPublicIPAddress(ctx context.Context, resourceGroup, name string) (*armnetwork.PublicIPAddress, error) {
	resp, err := cs.publicIPs.Get(ctx, resourceGroup, name, nil)
	if err != nil {
		return nil, err
	}
	return &resp.PublicIPAddress, nil
}

func (cs *ClientSet) CreatePublicIPAddress(ctx context.Context, resourceGroup, name string, pip armnetwork.PublicIPAddress) (*armnetwork.PublicIPAddress, error) {
	poller, err := cs.publicIPs.BeginCreateOrUpdate(ctx, resourceGroup, name, pip, nil)
	if err != nil {
		return nil, err
	}
	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &resp.PublicIPAddress, nil
}

func (cs *ClientSet) GetVirtualNetwork(ctx context.Context, resourceGroup, name string) (*armnetwork.VirtualNetwork, error) {
	resp, err := cs.vnets.Get(ctx, resourceGroup, name, nil)
	if err != nil {
		return nil, err
	}
	return &resp.VirtualNetwork, nil
}
