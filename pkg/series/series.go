package series

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// DateLayout is the layout used for every date rendered or parsed by the module
const DateLayout = "2006-01-02"

var (
	// ErrMalformed is returned when a series is not strictly increasing in date
	ErrMalformed = errors.New("malformed series")

	// ErrNoOverlap is returned when two series share no dates
	ErrNoOverlap = errors.New("series have no overlapping dates")
)

// Point is a single dated observation
type Point struct {
	Date  time.Time
	Value float64
}

// Series is a chronologically ordered sequence of observations
type Series struct {
	Name   string
	Points []Point
}

// Day normalizes a timestamp to UTC midnight of its calendar day
func Day(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// New builds a series from parallel date and value slices
func New(name string, dates []time.Time, values []float64) (Series, error) {
	if len(dates) != len(values) {
		return Series{}, fmt.Errorf("%w: %d dates for %d values", ErrMalformed, len(dates), len(values))
	}
	points := make([]Point, len(dates))
	for i := range dates {
		points[i] = Point{Date: Day(dates[i]), Value: values[i]}
	}
	s := Series{Name: name, Points: points}
	if err := s.Validate(); err != nil {
		return Series{}, err
	}
	return s, nil
}

// FromMap builds a series from a date keyed map, sorting by date
func FromMap(name string, values map[time.Time]float64) Series {
	points := make([]Point, 0, len(values))
	for date, v := range values {
		points = append(points, Point{Date: Day(date), Value: v})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return Series{Name: name, Points: points}
}

// Validate checks the dates are strictly increasing
func (s Series) Validate() error {
	for i := 1; i < len(s.Points); i++ {
		if !s.Points[i].Date.After(s.Points[i-1].Date) {
			return fmt.Errorf("%w: %s has %s after %s", ErrMalformed, s.Name,
				s.Points[i].Date.Format(DateLayout), s.Points[i-1].Date.Format(DateLayout))
		}
	}
	return nil
}

func (s Series) Len() int {
	return len(s.Points)
}

func (s Series) Empty() bool {
	return len(s.Points) == 0
}

func (s Series) Values() []float64 {
	values := make([]float64, len(s.Points))
	for i, p := range s.Points {
		values[i] = p.Value
	}
	return values
}

func (s Series) Dates() []time.Time {
	dates := make([]time.Time, len(s.Points))
	for i, p := range s.Points {
		dates[i] = p.Date
	}
	return dates
}

// Last returns the final observation, ok is false for an empty series
func (s Series) Last() (Point, bool) {
	if len(s.Points) == 0 {
		return Point{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// Until returns the prefix of the series dated on or before date
func (s Series) Until(date time.Time) Series {
	day := Day(date)
	idx := sort.Search(len(s.Points), func(i int) bool { return s.Points[i].Date.After(day) })
	return Series{Name: s.Name, Points: s.Points[:idx]}
}

// Between returns the observations within [from, to]. A zero bound is open.
func (s Series) Between(from, to time.Time) Series {
	points := make([]Point, 0, len(s.Points))
	for _, p := range s.Points {
		if !from.IsZero() && p.Date.Before(Day(from)) {
			continue
		}
		if !to.IsZero() && p.Date.After(Day(to)) {
			continue
		}
		points = append(points, p)
	}
	return Series{Name: s.Name, Points: points}
}

// IndexAt returns the index of the last observation at or before date, or -1
func (s Series) IndexAt(date time.Time) int {
	day := Day(date)
	return sort.Search(len(s.Points), func(i int) bool { return s.Points[i].Date.After(day) }) - 1
}

// ValueAt returns the most recent value at or before date
func (s Series) ValueAt(date time.Time) (float64, bool) {
	idx := s.IndexAt(date)
	if idx < 0 {
		return math.NaN(), false
	}
	return s.Points[idx].Value, true
}

// PctChange returns the period over period fractional change. The first
// observation has no predecessor and is dropped.
func (s Series) PctChange() Series {
	if len(s.Points) < 2 {
		return Series{Name: s.Name}
	}
	points := make([]Point, 0, len(s.Points)-1)
	for i := 1; i < len(s.Points); i++ {
		prev := s.Points[i-1].Value
		change := math.NaN()
		if prev != 0 {
			change = (s.Points[i].Value - prev) / prev
		}
		points = append(points, Point{Date: s.Points[i].Date, Value: change})
	}
	return Series{Name: s.Name, Points: points}
}

// Align inner joins two series on date, returning the matched values in order
func Align(a, b Series) ([]time.Time, []float64, []float64, error) {
	var (
		dates []time.Time
		left  []float64
		right []float64
	)
	i, j := 0, 0
	for i < len(a.Points) && j < len(b.Points) {
		da, db := a.Points[i].Date, b.Points[j].Date
		switch {
		case da.Equal(db):
			dates = append(dates, da)
			left = append(left, a.Points[i].Value)
			right = append(right, b.Points[j].Value)
			i++
			j++
		case da.Before(db):
			i++
		default:
			j++
		}
	}
	if len(dates) == 0 {
		return nil, nil, nil, fmt.Errorf("%w: %s and %s", ErrNoOverlap, a.Name, b.Name)
	}
	return dates, left, right, nil
}

// Combine inner joins two series and applies fn to each matched pair
func Combine(name string, a, b Series, fn func(x, y float64) float64) (Series, error) {
	dates, left, right, err := Align(a, b)
	if err != nil {
		return Series{Name: name}, err
	}
	points := make([]Point, len(dates))
	for i := range dates {
		points[i] = Point{Date: dates[i], Value: fn(left[i], right[i])}
	}
	return Series{Name: name, Points: points}, nil
}
