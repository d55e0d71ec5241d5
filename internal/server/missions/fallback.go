package missions

import "github.com/dmitrijs2005/sanposhin/internal/models"

type fallbackMission struct {
	text       string
	category   models.MissionCategory
	difficulty int
}

const (
	observe = models.CategoryObserve
	move    = models.CategoryMove
	mood    = models.CategoryMood
)

var fallbackMissions = []fallbackMission{
	{"Look up and photograph the shape of a cloud", observe, 1},
	{"Find one roadside flower or plant and photograph it", observe, 1},
	{"Spot a bird and take its picture", observe, 1},
	{"Capture the colour of today's sky", observe, 1},
	{"Photograph a leaf lying on the path", observe, 1},
	{"Take a picture of flowers blooming nearby", observe, 1},
	{"Take a close-up of the pattern on a tree trunk", observe, 1},
	{"Photograph a bird in flight", observe, 1},

	{"If you see a cat, take its picture", observe, 2},
	{"Photograph the biggest tree in the park", observe, 2},
	{"Find a flower of an unusual colour and photograph it", observe, 2},
	{"Find three flowers of the same kind and photograph them", observe, 2},
	{"Quietly photograph an insect or small animal", observe, 2},
	{"Find a funny-shaped cloud and take its picture", observe, 2},
	{"Photograph something that feels like the season", observe, 2},

	{"Photograph a building or sign you never noticed before", observe, 3},
	{"Find and photograph five different plants", observe, 3},
	{"Photograph an oddly shaped stone or branch", observe, 3},
	{"Find a rare bird and photograph it", observe, 3},

	{"Take one picture of an unfamiliar view", move, 1},
	{"Turn around and photograph the view behind you", move, 1},
	{"Photograph the scene while waiting at a crossing", move, 1},
	{"Photograph a tree from a different angle", move, 1},

	{"Photograph the view from a different road than usual", move, 2},
	{"Photograph a side path you rarely take", move, 2},
	{"Photograph the view at a street corner", move, 2},
	{"Photograph the view from a slope", move, 2},
	{"Take a picture of the view from a park bench", move, 2},
	{"Walk a hundred steps and photograph the view", move, 2},

	{"Photograph a street you have never walked", move, 3},
	{"Record the scenery of a new route", move, 3},
	{"Photograph the view from a staircase", move, 3},
	{"Take the long way and photograph the view", move, 3},

	{"Photograph the way to your destination", move, 4},
	{"Take two different pictures on the way there and back", move, 4},

	{"Photograph a view that calms you", mood, 1},
	{"Find a quiet place and photograph it", mood, 1},
	{"Photograph a view that reminds you of something good today", mood, 1},
	{"Photograph a scene that makes you smile", mood, 1},
	{"Photograph a soothing view", mood, 1},
	{"Photograph a view you love", mood, 1},

	{"Photograph a place where you feel stillness", mood, 2},
	{"Photograph a view that makes you feel grateful", mood, 2},
	{"Photograph a scene that stays with you", mood, 2},
	{"Photograph a view that matches today's mood", mood, 2},
	{"Photograph a view where nature feels beautiful", mood, 2},
	{"Photograph a scene that puts you at ease", mood, 2},

	{"Photograph a view that expresses who you are", mood, 3},
	{"Photograph a scene that shows the best of the season", mood, 3},
	{"Photograph a view you want to remember", mood, 3},
	{"Photograph a view that sums up your day", mood, 3},
}
