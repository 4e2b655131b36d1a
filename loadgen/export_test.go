package loadgen

var SpawnPlan = spawnPlan
