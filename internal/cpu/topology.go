package cpu

import (
	"strconv"

	"codeberg.org/mutker/hwmond/internal/errors"
	pscpu "github.com/shirou/gopsutil/v3/cpu"
)

// Topology maps physical cores to the logical processors (hardware
// threads) that belong to them. The counter source reports per logical
// processor; the device reports per physical core, so every load
// aggregation goes through this mapping. Entries are in first-seen core
// order; thread indices refer to counter snapshot positions.
type Topology [][]int

func (t Topology) CoreCount() int {
	return len(t)
}

func (t Topology) LogicalCount() int {
	n := 0
	for _, threads := range t {
		n += len(threads)
	}

	return n
}

// DetectTopology groups the visible logical processors by their physical
// package and core IDs. When the OS does not expose the mapping it falls
// back to one core per logical processor.
func DetectTopology() (Topology, error) {
	infos, err := pscpu.Info()
	if err != nil || len(infos) == 0 {
		return flatTopology()
	}

	order := make([]string, 0, len(infos))
	groups := make(map[string][]int, len(infos))
	for i, info := range infos {
		key := info.PhysicalID + "/" + info.CoreID
		if info.PhysicalID == "" && info.CoreID == "" {
			// Mapping not exposed, keep threads apart
			key = "cpu" + strconv.Itoa(i)
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	topo := make(Topology, 0, len(order))
	for _, key := range order {
		topo = append(topo, groups[key])
	}

	return topo, nil
}

func flatTopology() (Topology, error) {
	errFactory := errors.New()

	count, err := pscpu.Counts(true)
	if err != nil {
		return nil, errFactory.Wrap(ErrTopologyFailed, err)
	}
	if count <= 0 {
		return nil, errFactory.New(ErrNoProcessors)
	}

	topo := make(Topology, count)
	for i := 0; i < count; i++ {
		topo[i] = []int{i}
	}

	return topo, nil
}
