package gateway

import (
	"fmt"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"k8s.io/klog/v2"
	"time"
)

const cpuSampleInterval = 1 * time.Second

func (m *Manager) getGatewayCpu() ([]float64, error) {
	percents, err := cpu.Percent(cpuSampleInterval, true)
	if err != nil {
		klog.V(2).InfoS("Failed to get cpu usage", "err", err)
		return nil, err
	}
	return percents, nil
}

func (m *Manager) getGatewayMem() (*MemUsageInfo, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		klog.V(2).InfoS("Failed to get memory usage", "err", err)
		return nil, err
	}
	return &MemUsageInfo{
		Total:       formatGiB(vm.Total),
		Used:        formatGiB(vm.Used),
		UsedPercent: fmt.Sprintf("%.1f%%", vm.UsedPercent),
	}, nil
}

func (m *Manager) getGatewayDisk() ([]*DiskUsageInfo, error) {
	partitions, err := disk.Partitions(false)
	if err != nil {
		klog.V(2).InfoS("Failed to get disk partitions", "err", err)
		return nil, err
	}
	infos := make([]*DiskUsageInfo, 0, len(partitions))
	for _, partition := range partitions {
		usage, err := disk.Usage(partition.Mountpoint)
		if err != nil {
			klog.V(3).InfoS("Failed to get disk usage", "mountpoint", partition.Mountpoint, "err", err)
			continue
		}
		infos = append(infos, &DiskUsageInfo{
			Total:       formatGiB(usage.Total),
			Used:        formatGiB(usage.Used),
			UsedPercent: fmt.Sprintf("%.1f%%", usage.UsedPercent),
		})
	}
	return infos, nil
}

func formatGiB(v uint64) string {
	return fmt.Sprintf("%.2fG", float64(v)/(1<<30))
}
