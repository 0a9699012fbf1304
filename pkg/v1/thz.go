package v1

// thz (Stiebel Eltron LWZ/THZ heat pump service interface)
type THZDevice struct {
	DeviceMeta
	CollectorCycle uint        `json:"collectorCycle,omitempty"` // 采集周期,缺省60秒
	Technician     bool        `json:"technician,omitempty"`              // 技术员参数集
	Address        *THZAddress `json:"address" binding:"required"`        // IP地址\串口地址
}

type THZAddress struct {
	Location string            `json:"location" binding:"required"` // 地址路径
	Option   *THZAddressOption `json:"option"`                      // 地址其他参数
}

type THZAddressOption struct {
	Port     int    `json:"port,omitempty"`     // 端口号
	BaudRate int    `json:"baudRate,omitempty"` // 波特率
	DataBits int    `json:"dataBits,omitempty"` // 数据位
	Parity   string `json:"parity,omitempty"`   // 校验位
	StopBits string `json:"stopBits,omitempty"` // 停止位
}
