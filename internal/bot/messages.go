package bot

const helloMsg = `Доступные команды:
	/help - информация о боте
	/today - время за сегодня
	/tasks - список открытых задач
	/track <id задачи> - запустить таймер
	/stop - остановить таймер
	/report [дней] - отчет за последние дни
`

const helpMsg = `
	Бот ведет табель сотрудника %s в ERPNext.

	Одновременно может работать только один таймер. Чтобы переключиться
	на другую задачу, сначала остановите текущий таймер командой /stop.
	Пример:
	'/track TASK-2024-00042'

	Команда /report без аргументов формирует отчет за сегодняшний день,
	с числом - за указанное количество последних дней (не больше %d).
	Пример:
	'/report 7'
`

// replies
const (
	accessDeniedMsg       = "Ошибка: этот чат не может управлять табелем"
	unknownCommandMsg     = "Неизвестная команда. Воспользуйтесь /help для справки"
	commandFailedMsg      = "Ошибка при обращении к ERPNext, попробуйте позже"
	taskIdMissingMsg      = "Ошибка: укажите идентификатор задачи, например /track TASK-0001"
	reportDaysBadInputMsg = "Ошибка: не удалось обработать количество дней"
	reportFailedMsg       = "Ошибка при создании отчета"
	noTasksMsg            = "Открытых задач нет"
	emptyDayMsg           = "Сегодня время еще не учитывалось"
	lockedDaySuffix       = " (табель проведен)"
	timerStartedTemplate  = "Таймер запущен: %s %s"
	timerStoppedTemplate  = "Таймер остановлен: %s %s, всего за день %s"
	reportFileCaption     = "Отчет за период %s - %s"
	todayHeaderTemplate   = "%s, всего %s%s"
)
