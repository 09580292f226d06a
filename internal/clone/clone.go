package clone

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Cloner drives one clone run: a strict sequence of blocking ARM calls with
// no retries, no rollback and no state outside this struct. Anything created
// before a fatal failure stays behind in the destination resource group for
// manual cleanup.
type Cloner struct {
	opts Options
	src  API
	dst  API
	log  *log.Entry
}

// Result summarizes a successful run.
type Result struct {
	VMName            string
	VMID              string
	AvailabilitySetID string
	SnapshotCount     int
	DataDiskCount     int
	Elapsed           time.Duration
}

// New builds a Cloner over resolved options and the source/destination
// client sets. When source and destination subscriptions match, src and dst
// may be the same value.
func New(opts Options, src, dst API) *Cloner {
	return &Cloner{
		opts: opts,
		src:  src,
		dst:  dst,
		log:  log.WithField("run_id", uuid.New().String()[:8]),
	}
}

// Run executes the pipeline: resolve context, provide snapshots, resolve the
// availability set, clone the network, build disks, create the VM. Every
// stage reads only the stages before it; the first error aborts the run.
func (c *Cloner) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	rctx, err := c.resolveContext(ctx)
	if err != nil {
		return nil, err
	}

	if !c.opts.KeepSourceComputerName {
		// An attached OS disk boots with whatever computer name it was
		// sysprepped or installed with; nothing to rename here.
		c.log.Warn("The clone keeps the source's in-guest computer name; it cannot be changed on an attached OS disk")
	}

	snapshots, err := c.provideSnapshots(ctx, rctx)
	if err != nil {
		return nil, err
	}

	availabilitySetID, err := c.resolveAvailabilitySet(ctx, rctx)
	if err != nil {
		return nil, err
	}

	nics, err := c.cloneNetwork(ctx, rctx)
	if err != nil {
		return nil, err
	}

	storage, err := c.buildStorageProfile(ctx, rctx, snapshots)
	if err != nil {
		return nil, err
	}

	vm, err := c.assembleAndCreate(ctx, rctx, availabilitySetID, nics, storage)
	if err != nil {
		return nil, err
	}

	result := &Result{
		VMName:            rctx.destVMName,
		VMID:              toValue(vm.ID),
		AvailabilitySetID: availabilitySetID,
		SnapshotCount:     len(snapshots),
		DataDiskCount:     len(snapshots) - 1,
		Elapsed:           time.Since(start),
	}
	c.log.WithFields(log.Fields{
		"vm":      result.VMName,
		"vm_id":   result.VMID,
		"elapsed": result.Elapsed.Round(time.Second).String(),
	}).Info("Clone complete")
	return result, nil
}
