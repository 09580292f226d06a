package clone

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v2"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armsubscriptions"

	"github.com/vexxhost/clonekit/internal/azure"
)

// API is the slice of ARM surface the clone pipeline touches, one method per
// remote call. The pipeline holds one API per subscription (source and
// destination); tests substitute an in-memory fake.
type API interface {
	GetSubscription(ctx context.Context) (*armsubscriptions.Subscription, error)

	GetResourceGroup(ctx context.Context, name string) (*armresources.ResourceGroup, error)
	CreateResourceGroup(ctx context.Context, name string, group armresources.ResourceGroup) (*armresources.ResourceGroup, error)

	GetVirtualMachine(ctx context.Context, resourceGroup, name string) (*armcompute.VirtualMachine, error)
	CreateVirtualMachine(ctx context.Context, resourceGroup, name string, vm armcompute.VirtualMachine) (*armcompute.VirtualMachine, error)

	GetDisk(ctx context.Context, resourceGroup, name string) (*armcompute.Disk, error)
	CreateDisk(ctx context.Context, resourceGroup, name string, disk armcompute.Disk) (*armcompute.Disk, error)

	GetSnapshot(ctx context.Context, resourceGroup, name string) (*armcompute.Snapshot, error)
	CreateSnapshot(ctx context.Context, resourceGroup, name string, snapshot armcompute.Snapshot) (*armcompute.Snapshot, error)

	GetAvailabilitySet(ctx context.Context, resourceGroup, name string) (*armcompute.AvailabilitySet, error)
	CreateAvailabilitySet(ctx context.Context, resourceGroup, name string, set armcompute.AvailabilitySet) (*armcompute.AvailabilitySet, error)

	GetInterface(ctx context.Context, resourceGroup, name string) (*armnetwork.Interface, error)
	CreateOrUpdateInterface(ctx context.Context, resourceGroup, name string, nic armnetwork.Interface) (*armnetwork.Interface, error)

	GetPublicIPAddress(ctx context.Context, resourceGroup, name string) (*armnetwork.PublicIPAddress, error)
	CreatePublicIPAddress(ctx context.Context, resourceGroup, name string, pip armnetwork.PublicIPAddress) (*armnetwork.PublicIPAddress, error)

	GetVirtualNetwork(ctx context.Context, resourceGroup, name string) (*armnetwork.VirtualNetwork, error)
}

var _ API = (*azure.ClientSet)(nil)

// toValue dereferences an SDK pointer field, yielding the zero value for nil.
func toValue[T any](v *T) T {
	if v == nil {
		var zero T
		return zero
	}
	return *v
}
