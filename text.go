package main

import "fmt"

// Chart is the text rendered around one chart of the insights page.
type Chart struct {
	Chapter string `json:"chapter"`
	Title   string `json:"title"`
	XLabel  string `json:"x_label,omitempty"`
	YLabel  string `json:"y_label,omitempty"`
	Legend  string `json:"legend,omitempty"`
	Caption string `json:"caption,omitempty"`
}

const (
	chapterLandscape  = "Chapter 1: The Landscape of Choices"
	chapterAdmissions = "Chapter 2: From Aspirations to Admissions"
	chapterFormations = "Chapter 3: Popular Formations"
	chapterTrends     = "Chapter 4: Trends Over Time"
)

func landscapeChart(year, minWishes int) Chart {
	return Chart{
		Chapter: chapterLandscape,
		Title:   fmt.Sprintf("Subject Combinations in %d", year),
		Caption: fmt.Sprintf("Only combinations confirmed by at least %d candidates are shown.", minWishes),
	}
}

func pairsChart(year, n int) Chart {
	return Chart{
		Chapter: chapterAdmissions,
		Title:   fmt.Sprintf("Top %d Subject Combinations in %d", n, year),
		XLabel:  "Subject combination",
		YLabel:  "Number of confirmed wishes",
	}
}

func trendsChart() Chart {
	return Chart{
		Chapter: chapterAdmissions,
		Title:   "Candidates with at least one confirmed wish, most represented specialties",
		XLabel:  "Baccalaureate year",
		YLabel:  "Number of candidates",
		Legend:  "Specialties",
	}
}

var formationCharts = map[string]Chart{
	"wishes": {
		Chapter: chapterFormations,
		Title:   "Top %d Formations by Confirmed Wishes",
		XLabel:  "Formation",
		YLabel:  "Number of Confirmed Wishes",
	},
	"received": {
		Chapter: chapterFormations,
		Title:   "Top %d Formations by Admission Proposals",
		XLabel:  "Formation",
		YLabel:  "Number of Admission Proposals",
	},
	"accepted": {
		Chapter: chapterFormations,
		Title:   "Top %d Formations by Accepted Admissions",
		XLabel:  "Formation",
		YLabel:  "Number of Accepted Admissions",
	},
}

func topFormationsChart(metric string, n int) Chart {
	c := formationCharts[metric]
	c.Title = fmt.Sprintf(c.Title, n)
	return c
}

func totalsChart() Chart {
	return Chart{
		Chapter: chapterFormations,
		Title:   "Candidates per category",
		XLabel:  "Category",
		YLabel:  "Number of candidates",
		Legend:  "Formations",
	}
}

func ratesChart() Chart {
	return Chart{
		Chapter: chapterAdmissions,
		Title:   "Share of wishes turned into proposals and admissions",
	}
}

func funnelChart(caption string) Chart {
	return Chart{
		Chapter: chapterAdmissions,
		Title:   "Percentage of proposals received and accepted over the number of wishes made",
		Legend:  "Wishes, Proposals Received, Student Admitted, Proposal never received, Refused Admissions",
		Caption: caption,
	}
}

func yearlyChart() Chart {
	return Chart{
		Chapter: chapterTrends,
		Title:   "Trends in Candidates, Offers, and Acceptances",
		XLabel:  "Baccalaureate year",
		YLabel:  "Number of Candidates",
		Legend:  "Category",
	}
}
