package clone

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v2"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armsubscriptions"
)

// fakeARM is an in-memory API implementation holding one subscription's
// resources. Create calls assign well-formed ARM ids and append to an event
// journal, so tests can assert both state and call ordering.
type fakeARM struct {
	mu             sync.Mutex
	subscriptionID string

	groups    map[string]*armresources.ResourceGroup
	vms       map[string]*armcompute.VirtualMachine
	disks     map[string]*armcompute.Disk
	snapshots map[string]*armcompute.Snapshot
	avsets    map[string]*armcompute.AvailabilitySet
	nics      map[string]*armnetwork.Interface
	pips      map[string]*armnetwork.PublicIPAddress
	vnets     map[string]*armnetwork.VirtualNetwork

	// journal records "verb:kind:name" per mutating call, in order.
	journal []string

	// nicWrites keeps every Interface payload passed to
	// CreateOrUpdateInterface per NIC name, for the create-then-update
	// assertions.
	nicWrites map[string][]armnetwork.Interface

	// createdVMs keeps the VirtualMachine payloads passed to
	// CreateVirtualMachine keyed by name.
	createdVMs map[string]armcompute.VirtualMachine

	// createdSnapshots keeps the Snapshot payloads keyed by name.
	createdSnapshots map[string]armcompute.Snapshot

	// createdDisks keeps the Disk payloads keyed by name.
	createdDisks map[string]armcompute.Disk
}

func newFakeARM(subscriptionID string) *fakeARM {
	return &fakeARM{
		subscriptionID:   subscriptionID,
		groups:           map[string]*armresources.ResourceGroup{},
		vms:              map[string]*armcompute.VirtualMachine{},
		disks:            map[string]*armcompute.Disk{},
		snapshots:        map[string]*armcompute.Snapshot{},
		avsets:           map[string]*armcompute.AvailabilitySet{},
		nics:             map[string]*armnetwork.Interface{},
		pips:             map[string]*armnetwork.PublicIPAddress{},
		vnets:            map[string]*armnetwork.VirtualNetwork{},
		nicWrites:        map[string][]armnetwork.Interface{},
		createdVMs:       map[string]armcompute.VirtualMachine{},
		createdSnapshots: map[string]armcompute.Snapshot{},
		createdDisks:     map[string]armcompute.Disk{},
	}
}

func notFound(kind, name string) error {
	return &azcore.ResponseError{
		StatusCode: http.StatusNotFound,
		ErrorCode:  kind + "NotFound",
	}
}

func (f *fakeARM) id(provider, kind, rg, name string) string {
	return fmt.Sprintf("/subscriptions/%s/resourceGroups/%s/providers/%s/%s/%s",
		f.subscriptionID, rg, provider, kind, name)
}

func (f *fakeARM) key(rg, name string) string { return rg + "/" + name }

func (f *fakeARM) record(event string) {
	f.journal = append(f.journal, event)
}

func (f *fakeARM) GetSubscription(ctx context.Context) (*armsubscriptions.Subscription, error) {
	return &armsubscriptions.Subscription{
		SubscriptionID: to.Ptr(f.subscriptionID),
		DisplayName:    to.Ptr("fake-subscription"),
	}, nil
}

func (f *fakeARM) GetResourceGroup(ctx context.Context, name string) (*armresources.ResourceGroup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rg, ok := f.groups[name]; ok {
		return rg, nil
	}
	return nil, notFound("ResourceGroup", name)
}

func (f *fakeARM) CreateResourceGroup(ctx context.Context, name string, group armresources.ResourceGroup) (*armresources.ResourceGroup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	group.Name = to.Ptr(name)
	group.ID = to.Ptr(fmt.Sprintf("/subscriptions/%s/resourceGroups/%s", f.subscriptionID, name))
	f.groups[name] = &group
	f.record("create:resourcegroup:" + name)
	return &group, nil
}

func (f *fakeARM) GetVirtualMachine(ctx context.Context, rg, name string) (*armcompute.VirtualMachine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if vm, ok := f.vms[f.key(rg, name)]; ok {
		return vm, nil
	}
	return nil, notFound("VirtualMachine", name)
}

func (f *fakeARM) CreateVirtualMachine(ctx context.Context, rg, name string, vm armcompute.VirtualMachine) (*armcompute.VirtualMachine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	vm.Name = to.Ptr(name)
	vm.ID = to.Ptr(f.id("Microsoft.Compute", "virtualMachines", rg, name))
	f.vms[f.key(rg, name)] = &vm
	f.createdVMs[name] = vm
	f.record("create:vm:" + name)
	return &vm, nil
}

func (f *fakeARM) GetDisk(ctx context.Context, rg, name string) (*armcompute.Disk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.disks[f.key(rg, name)]; ok {
		return d, nil
	}
	return nil, notFound("Disk", name)
}

func (f *fakeARM) CreateDisk(ctx context.Context, rg, name string, disk armcompute.Disk) (*armcompute.Disk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	disk.Name = to.Ptr(name)
	disk.ID = to.Ptr(f.id("Microsoft.Compute", "disks", rg, name))
	f.disks[f.key(rg, name)] = &disk
	f.createdDisks[name] = disk
	f.record("create:disk:" + name)
	return &disk, nil
}

func (f *fakeARM) GetSnapshot(ctx context.Context, rg, name string) (*armcompute.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.snapshots[f.key(rg, name)]; ok {
		return s, nil
	}
	return nil, notFound("Snapshot", name)
}

func (f *fakeARM) CreateSnapshot(ctx context.Context, rg, name string, snapshot armcompute.Snapshot) (*armcompute.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot.Name = to.Ptr(name)
	snapshot.ID = to.Ptr(f.id("Microsoft.Compute", "snapshots", rg, name))
	f.snapshots[f.key(rg, name)] = &snapshot
	f.createdSnapshots[name] = snapshot
	f.record("create:snapshot:" + name)
	return &snapshot, nil
}

func (f *fakeARM) GetAvailabilitySet(ctx context.Context, rg, name string) (*armcompute.AvailabilitySet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.avsets[f.key(rg, name)]; ok {
		return s, nil
	}
	return nil, notFound("AvailabilitySet", name)
}

func (f *fakeARM) CreateAvailabilitySet(ctx context.Context, rg, name string, set armcompute.AvailabilitySet) (*armcompute.AvailabilitySet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	set.Name = to.Ptr(name)
	set.ID = to.Ptr(f.id("Microsoft.Compute", "availabilitySets", rg, name))
	f.avsets[f.key(rg, name)] = &set
	f.record("create:avset:" + name)
	return &set, nil
}

func (f *fakeARM) GetInterface(ctx context.Context, rg, name string) (*armnetwork.Interface, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n, ok := f.nics[f.key(rg, name)]; ok {
		return n, nil
	}
	return nil, notFound("NetworkInterface", name)
}

func (f *fakeARM) CreateOrUpdateInterface(ctx context.Context, rg, name string, nic armnetwork.Interface) (*armnetwork.Interface, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	nic.Name = to.Ptr(name)
	nic.ID = to.Ptr(f.id("Microsoft.Network", "networkInterfaces", rg, name))
	stored := nic
	f.nics[f.key(rg, name)] = &stored

	// Journal a snapshot of the payload: callers mutate the returned object
	// between calls, so the recorded Properties must not be aliased.
	record := nic
	if nic.Properties != nil {
		props := *nic.Properties
		props.IPConfigurations = append([]*armnetwork.InterfaceIPConfiguration(nil), nic.Properties.IPConfigurations...)
		record.Properties = &props
	}
	f.nicWrites[name] = append(f.nicWrites[name], record)
	f.record("write:nic:" + name)
	return &stored, nil
}

func (f *fakeARM) GetPublicIPAddress(ctx context.Context, rg, name string) (*armnetwork.PublicIPAddress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.pips[f.key(rg, name)]; ok {
		return p, nil
	}
	return nil, notFound("PublicIPAddress", name)
}

func (f *fakeARM) CreatePublicIPAddress(ctx context.Context, rg, name string, pip armnetwork.PublicIPAddress) (*armnetwork.PublicIPAddress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pip.Name = to.Ptr(name)
	pip.ID = to.Ptr(f.id("Microsoft.Network", "publicIPAddresses", rg, name))
	f.pips[f.key(rg, name)] = &pip
	f.record("create:pip:" + name)
	return &pip, nil
}

func (f *fakeARM) GetVirtualNetwork(ctx context.Context, rg, name string) (*armnetwork.VirtualNetwork, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.vnets[f.key(rg, name)]; ok {
		return v, nil
	}
	return nil, notFound("VirtualNetwork", name)
}

var _ API = (*fakeARM)(nil)

// snapshotNames lists the created snapshot names in creation order.
func (f *fakeARM) snapshotNames() []string {
	var names []string
	for _, e := range f.journal {
		if len(e) > len("create:snapshot:") && e[:len("create:snapshot:")] == "create:snapshot:" {
			names = append(names, e[len("create:snapshot:"):])
		}
	}
	return names
}
