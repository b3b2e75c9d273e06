package dto

// ── 报表模块 DTO ──

// GenerateReportRequest 生成考勤报表
type GenerateReportRequest struct {
	Subject string `form:"subject" json:"subject" binding:"required"`
	Start   string `form:"start"   json:"start"   binding:"required"` // ДД.ММ.ГГГГ
	End     string `form:"end"     json:"end"     binding:"required"`
	Mode    string `form:"mode"    json:"mode"`   // "" | combined | lecture | lab:<subgroup>
	Format  string `form:"format"  json:"format"` // pdf（默认）| xlsx
}

// ReportFile 生成的报表文档
type ReportFile struct {
	Content     []byte
	Filename    string
	ContentType string
	Pages       int      // PDF 页数；xlsx 为工作表数
	Warnings    []string // 仅表头的页组
	Cached      bool
}
