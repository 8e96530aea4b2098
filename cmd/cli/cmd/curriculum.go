package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/picogrid/evasion-sim/pkg/curriculum"
	"github.com/picogrid/evasion-sim/pkg/logger"
	"github.com/picogrid/evasion-sim/pkg/utils"
)

var curriculumCmd = &cobra.Command{
	Use:   "curriculum",
	Short: "Manage the lesson plan",
	Long:  `Show and edit the curriculum that scales episode difficulty`,
}

var curriculumShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the lesson plan",
	RunE:  showCurriculum,
}

var curriculumAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Append a lesson",
	RunE:  addLesson,
}

var curriculumRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove a lesson",
	RunE:  removeLesson,
}

var curriculumFile string

func init() {
	curriculumCmd.PersistentFlags().StringVarP(&curriculumFile, "file", "f", "", "curriculum file (default is $HOME/.evasion-sim/curriculum.yaml)")

	curriculumCmd.AddCommand(curriculumShowCmd)
	curriculumCmd.AddCommand(curriculumAddCmd)
	curriculumCmd.AddCommand(curriculumRemoveCmd)
}

func curriculumPath() (string, error) {
	if curriculumFile != "" {
		return curriculumFile, nil
	}
	return curriculum.DefaultPath()
}

func loadCurriculum() (*curriculum.Curriculum, string, error) {
	path, err := curriculumPath()
	if err != nil {
		return nil, "", err
	}
	plan, err := curriculum.LoadCurriculum(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load curriculum: %w", err)
	}
	return plan, path, nil
}

func showCurriculum(cmd *cobra.Command, args []string) error {
	plan, path, err := loadCurriculum()
	if err != nil {
		return err
	}

	logger.LogKeyValue("File", path)
	logger.LogKeyValue("Measure", plan.Measure)
	logger.LogKeyValue("Min lesson length", plan.MinLessonLength)
	logger.LogKeyValue("Signal smoothing", plan.SignalSmoothing)

	keys := plan.Keys()
	table := logger.NewTable(append([]string{"LESSON", "THRESHOLD"}, keys...)...)
	for lesson := 0; lesson < plan.Lessons(); lesson++ {
		threshold := "-"
		if lesson < len(plan.Thresholds) {
			threshold = strconv.FormatFloat(plan.Thresholds[lesson], 'g', -1, 64)
		}
		row := []string{strconv.Itoa(lesson), threshold}
		for _, key := range keys {
			row = append(row, strconv.FormatFloat(plan.Parameters[key][lesson], 'g', -1, 64))
		}
		table.AddRow(row...)
	}
	table.Fprint(cmd.OutOrStdout())
	return nil
}

func addLesson(cmd *cobra.Command, args []string) error {
	plan, path, err := loadCurriculum()
	if err != nil {
		return err
	}

	last := plan.Lessons() - 1
	values := make(map[string]float64, len(curriculum.RequiredKeys))
	for _, key := range plan.Keys() {
		def := strconv.FormatFloat(plan.Parameters[key][last], 'g', -1, 64)
		answer, err := utils.AskString(fmt.Sprintf("%s:", key), def, true)
		if err != nil {
			return err
		}
		v, err := strconv.ParseFloat(answer, 64)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
		values[key] = v
	}

	// Entering the new lesson needs a threshold on the current last one
	answer, err := utils.AskString(fmt.Sprintf("Threshold to leave lesson %d (%s):", last, plan.Measure), "0.8", true)
	if err != nil {
		return err
	}
	threshold, err := strconv.ParseFloat(strings.TrimSpace(answer), 64)
	if err != nil {
		return fmt.Errorf("invalid threshold: %w", err)
	}

	plan.Thresholds = append(plan.Thresholds, threshold)
	for key, v := range values {
		plan.Parameters[key] = append(plan.Parameters[key], v)
	}

	if err := curriculum.SaveCurriculum(plan, path); err != nil {
		return fmt.Errorf("failed to save curriculum: %w", err)
	}

	logger.Successf("Lesson %d added", last+1)
	return nil
}

func removeLesson(cmd *cobra.Command, args []string) error {
	plan, path, err := loadCurriculum()
	if err != nil {
		return err
	}

	if plan.Lessons() < 2 {
		fmt.Println("A curriculum needs at least one lesson")
		return nil
	}

	options := make([]string, plan.Lessons())
	for i := range options {
		options[i] = strconv.Itoa(i)
	}

	selected, err := utils.Select("Select lesson to remove:", options, options[len(options)-1])
	if err != nil {
		return err
	}
	lesson, _ := strconv.Atoi(selected)

	confirm, err := utils.Confirm(fmt.Sprintf("Are you sure you want to remove lesson %d?", lesson), false)
	if err != nil {
		return err
	}
	if !confirm {
		fmt.Println("Removal cancelled")
		return nil
	}

	removeLessonAt(plan, lesson)

	if err := curriculum.SaveCurriculum(plan, path); err != nil {
		return fmt.Errorf("failed to save curriculum: %w", err)
	}

	logger.Successf("Lesson %d removed", lesson)
	return nil
}

// removeLessonAt drops one lesson's values and the threshold that led out of
// it; removing the last lesson drops the threshold that led into it.
func removeLessonAt(plan *curriculum.Curriculum, lesson int) {
	for key, values := range plan.Parameters {
		plan.Parameters[key] = append(values[:lesson:lesson], values[lesson+1:]...)
	}

	drop := lesson
	if drop >= len(plan.Thresholds) {
		drop = len(plan.Thresholds) - 1
	}
	plan.Thresholds = append(plan.Thresholds[:drop:drop], plan.Thresholds[drop+1:]...)
}
