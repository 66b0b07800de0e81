package main

import "taskdesk/internal/cli"

// @title       TaskDesk API
// @version     1.0
// @description Делегирование задач сотрудникам, повторяющиеся задачи и бонусный баланс.
// @BasePath    /
// @securityDefinitions.apikey BearerAuth
// @in          header
// @name        Authorization
func main() {
	cli.Execute()
}
