package service

import "math/rand/v2"

var oddsChoices = [...]int{2, 3, 4}

// PickOdds draws odds for a newly observed driver.
func PickOdds() int { return oddsChoices[rand.IntN(len(oddsChoices))] }
