package issue

import (
	"fmt"
	"time"

	commonDto "anoa.com/campusfix/pkg/dto"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Issues"

var exportHeaders = []string{
	"Title", "Department", "Room", "Item", "Status", "Reporter", "College ID",
	"Reported At", "Deadline", "Days Remaining", "Resolved At", "Upvotes",
}

func writeWorkbook(issues []commonDto.IssueResponse) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	for col, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(exportSheet, cell, header); err != nil {
			return nil, err
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(exportHeaders), 1)
	if err := f.SetCellStyle(exportSheet, "A1", lastHeader, headerStyle); err != nil {
		return nil, err
	}

	for i, issue := range issues {
		row := []any{
			issue.Title,
			"",
			issue.RoomNo,
			issue.ItemID,
			issue.Status,
			"",
			"",
			issue.ReportedAt.Format(time.RFC3339),
			issue.Deadline.Format(time.RFC3339),
			issue.DaysRemaining,
			"",
			issue.UpvoteCount,
		}
		if issue.Department != nil {
			row[1] = issue.Department.Name
		}
		if issue.Reporter != nil {
			row[5] = issue.Reporter.FullName
			row[6] = issue.Reporter.CollegeID
		}
		if issue.ResolvedAt != nil {
			row[10] = issue.ResolvedAt.Format(time.RFC3339)
		}

		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
